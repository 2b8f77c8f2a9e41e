// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	// ParametricEpsilon is multiplied by sqrt(element area) to give the
	// tolerance applied to parametric coordinates at element edges.
	ParametricEpsilon = 1e-7

	parallelEpsilon = 1e-14
	bilinearEpsilon = 1e-12
)

// Ray is a half-line starting at Origin.
type Ray struct {
	Origin r3.Vector
	Dir    r3.Vector
}

// RayThrough returns the ray from the sphere centre through p.
func RayThrough(p r3.Vector) Ray {
	return Ray{Dir: p}
}

// PlanarRay returns a ray hitting the z = 0 plane at (x, y) from below. It
// is used to run the element tests on lon/lat coordinates.
func PlanarRay(x, y float64) Ray {
	return Ray{Origin: r3.Vector{X: x, Y: y, Z: -1}, Dir: r3.Vector{Z: 1}}
}

// Intersection holds the parametric coordinates of a ray/element hit and
// the distance along the ray.
type Intersection struct {
	U, V float64
	T    float64
}

// EdgeEpsilon returns the parametric tolerance for an element of the given area.
func EdgeEpsilon(area float64) float64 {
	return ParametricEpsilon * math.Sqrt(area)
}

// Triangle is a planar triangle in 3-D.
type Triangle [3]r3.Vector

// Area returns the planar area of t.
func (t Triangle) Area() float64 {
	return 0.5 * t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Norm()
}

// Intersect tests ray against t (Möller-Trumbore). Parametric coordinates up
// to edgeEps outside the triangle are accepted.
func (t Triangle) Intersect(ray Ray, edgeEps float64) (Intersection, bool) {
	e1 := t[1].Sub(t[0])
	e2 := t[2].Sub(t[0])
	pvec := ray.Dir.Cross(e2)
	det := e1.Dot(pvec)
	if math.Abs(det) <= parallelEpsilon*e1.Norm()*e2.Norm()*ray.Dir.Norm() {
		return Intersection{}, false
	}
	inv := 1 / det

	tvec := ray.Origin.Sub(t[0])
	u := tvec.Dot(pvec) * inv
	if u < -edgeEps || u > 1+edgeEps {
		return Intersection{}, false
	}
	qvec := tvec.Cross(e1)
	v := ray.Dir.Dot(qvec) * inv
	if v < -edgeEps || u+v > 1+edgeEps {
		return Intersection{}, false
	}
	d := e2.Dot(qvec) * inv
	if d < 0 {
		return Intersection{}, false
	}
	return Intersection{U: u, V: v, T: d}, true
}

// Weights evaluates the linear shape functions of t at is.
func (t Triangle) Weights(is Intersection) []float64 {
	return clampNormalise([]float64{1 - is.U - is.V, is.U, is.V})
}

// Quad is a quadrilateral with vertices in counter-clockwise order
// (V00, V10, V11, V01).
type Quad [4]r3.Vector

// Area returns the sum of the areas of the two triangles splitting q.
func (q Quad) Area() float64 {
	return Triangle{q[0], q[1], q[2]}.Area() + Triangle{q[0], q[2], q[3]}.Area()
}

// Intersect tests ray against q using the Lagae-Dutré algorithm and returns
// the bilinear coordinates of the hit.
func (q Quad) Intersect(ray Ray, edgeEps float64) (Intersection, bool) {
	v00, v10, v11, v01 := q[0], q[1], q[2], q[3]

	e01 := v10.Sub(v00)
	e03 := v01.Sub(v00)
	p := ray.Dir.Cross(e03)
	det := e01.Dot(p)
	if math.Abs(det) <= parallelEpsilon*e01.Norm()*e03.Norm()*ray.Dir.Norm() {
		return Intersection{}, false
	}
	tv := ray.Origin.Sub(v00)
	alpha := tv.Dot(p) / det
	if alpha < -edgeEps {
		return Intersection{}, false
	}
	qv := tv.Cross(e01)
	beta := ray.Dir.Dot(qv) / det
	if beta < -edgeEps {
		return Intersection{}, false
	}

	if alpha+beta > 1 {
		// Outside the first triangle: test against (V11, V01, V10).
		e23 := v01.Sub(v11)
		e21 := v10.Sub(v11)
		p2 := ray.Dir.Cross(e21)
		det2 := e23.Dot(p2)
		if math.Abs(det2) <= parallelEpsilon*e23.Norm()*e21.Norm()*ray.Dir.Norm() {
			return Intersection{}, false
		}
		t2 := ray.Origin.Sub(v11)
		alpha2 := t2.Dot(p2) / det2
		if alpha2 < -edgeEps {
			return Intersection{}, false
		}
		q2 := t2.Cross(e23)
		beta2 := ray.Dir.Dot(q2) / det2
		if beta2 < -edgeEps {
			return Intersection{}, false
		}
	}

	d := e03.Dot(qv) / det
	if d < 0 {
		return Intersection{}, false
	}

	alpha11, beta11 := barycentricOfV11(e01, e03, v11.Sub(v00))

	var u, v float64
	switch {
	case math.Abs(alpha11-1) < bilinearEpsilon:
		u = alpha
		if math.Abs(beta11-1) < bilinearEpsilon {
			v = beta
		} else {
			v = beta / (u*(beta11-1) + 1)
		}
	case math.Abs(beta11-1) < bilinearEpsilon:
		v = beta
		u = alpha / (v*(alpha11-1) + 1)
	default:
		a := -(beta11 - 1)
		b := alpha*(beta11-1) - beta*(alpha11-1) - 1
		c := alpha
		disc := math.Max(0, b*b-4*a*c)
		qq := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
		u = qq / a
		if u < -edgeEps || u > 1+edgeEps {
			u = c / qq
		}
		v = beta / (u*(beta11-1) + 1)
	}
	if u < -edgeEps || u > 1+edgeEps || v < -edgeEps || v > 1+edgeEps {
		return Intersection{}, false
	}
	return Intersection{U: u, V: v, T: d}, true
}

// Weights evaluates the bilinear shape functions of q at is, in vertex order.
func (q Quad) Weights(is Intersection) []float64 {
	u, v := is.U, is.V
	return clampNormalise([]float64{
		(1 - u) * (1 - v),
		u * (1 - v),
		u * v,
		(1 - u) * v,
	})
}

func barycentricOfV11(e01, e03, e02 r3.Vector) (float64, float64) {
	n := e01.Cross(e03)
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		return (e02.Y*e03.Z - e02.Z*e03.Y) / n.X, (e01.Y*e02.Z - e01.Z*e02.Y) / n.X
	case ay >= ax && ay >= az:
		return (e02.Z*e03.X - e02.X*e03.Z) / n.Y, (e01.Z*e02.X - e01.X*e02.Z) / n.Y
	default:
		return (e02.X*e03.Y - e02.Y*e03.X) / n.Z, (e01.X*e02.Y - e01.Y*e02.X) / n.Z
	}
}

func clampNormalise(w []float64) []float64 {
	sum := 0.0
	for i := range w {
		if w[i] < 0 {
			w[i] = 0
		}
		sum += w[i]
	}
	if sum == 0 {
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
