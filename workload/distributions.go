package workload

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxDelay bounds every sampled delay so that timestamps stay well inside a
// 32 bit signed bitvector.
const MaxDelay = 1000

// Distribution samples delays in milliseconds
type Distribution interface {
	Rand() int
	SetSrc(rand.Source)
}

type sampler interface {
	Rand() float64
}

// clamp keeps samples in 1..MaxDelay
func clamp(s sampler) int {
	v := int(s.Rand())
	if v < 1 {
		return 1
	}
	if v > MaxDelay {
		return MaxDelay
	}
	return v
}

type ParetoDistribution struct {
	*distuv.Pareto
}

func NewParetoDistribution(xm, alpha float64) *ParetoDistribution {
	return &ParetoDistribution{
		Pareto: &distuv.Pareto{Xm: xm, Alpha: alpha},
	}
}

func (p *ParetoDistribution) SetSrc(src rand.Source) {
	p.Pareto.Src = src
}

func (p *ParetoDistribution) Rand() int {
	return clamp(p.Pareto)
}

type WeibullDistribution struct {
	*distuv.Weibull
}

func NewWeibullDistribution(k, lambda float64) *WeibullDistribution {
	return &WeibullDistribution{
		Weibull: &distuv.Weibull{K: k, Lambda: lambda},
	}
}

func (w *WeibullDistribution) SetSrc(src rand.Source) {
	w.Weibull.Src = src
}

func (w *WeibullDistribution) Rand() int {
	return clamp(w.Weibull)
}

type ExpDistribution struct {
	*distuv.Exponential
}

// NewExpDistribution takes the mean delay rather than the rate
func NewExpDistribution(mean float64) *ExpDistribution {
	return &ExpDistribution{
		Exponential: &distuv.Exponential{Rate: 1 / mean},
	}
}

func (e *ExpDistribution) SetSrc(src rand.Source) {
	e.Exponential.Src = src
}

func (e *ExpDistribution) Rand() int {
	return clamp(e.Exponential)
}

// NewDistribution returns one of pareto, weibull or exp with parameters that
// give delays in the tens of milliseconds
func NewDistribution(name string) (Distribution, error) {
	switch name {
	case "pareto":
		return NewParetoDistribution(10, 2), nil
	case "weibull":
		return NewWeibullDistribution(1.5, 30), nil
	case "exp", "":
		return NewExpDistribution(25), nil
	}
	return nil, fmt.Errorf("unknown distribution %q", name)
}
