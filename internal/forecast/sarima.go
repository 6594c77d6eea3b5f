// Package forecast fits a seasonal ARIMA model to a monthly series and
// produces a fixed-horizon forecast with confidence bounds.
package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
)

// Order is the non-seasonal (p, d, q) specification.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// SeasonalOrder is the seasonal (P, D, Q, s) specification.
type SeasonalOrder struct {
	P      int `json:"p"`
	D      int `json:"d"`
	Q      int `json:"q"`
	Period int `json:"s"`
}

// Options configures a single fit. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Order           Order         `json:"order"`
	Seasonal        SeasonalOrder `json:"seasonal_order"`
	Horizon         int           `json:"horizon"`
	Confidence      float64       `json:"confidence"`
	MinObservations int           `json:"min_observations"`
}

// DefaultOptions returns the fixed model configuration used throughout:
// SARIMA(1,1,1)(1,1,1)12, 12-month horizon, 95% confidence interval, and a
// two-cycle minimum history requirement.
func DefaultOptions() Options {
	return Options{
		Order:           Order{P: 1, D: 1, Q: 1},
		Seasonal:        SeasonalOrder{P: 1, D: 1, Q: 1, Period: 12},
		Horizon:         12,
		Confidence:      0.95,
		MinObservations: 24,
	}
}

// ModelFitError signals that the model could not be fit; no partial forecast
// accompanies it.
type ModelFitError struct {
	Reason string
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model fit failed: %s", e.Reason)
}

// Engine is a stateless SARIMA fitter. Each Forecast call re-fits the model
// from scratch; identical inputs produce identical output.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Forecast fits the configured model to the series, whose last observation
// belongs to lastPeriod, and returns Horizon forecast points for the months
// immediately following it. Every point satisfies lower <= point <= upper.
func (e *Engine) Forecast(series []float64, lastPeriod domain.Period, opts Options) ([]domain.ForecastPoint, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if len(series) < opts.MinObservations {
		return nil, &ModelFitError{
			Reason: fmt.Sprintf("need at least %d observations for seasonal period %d, got %d",
				opts.MinObservations, opts.Seasonal.Period, len(series)),
		}
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ModelFitError{Reason: fmt.Sprintf("non-finite observation at index %d", i)}
		}
	}

	s := opts.Seasonal.Period

	// Difference: d regular passes, then D seasonal passes.
	w := append([]float64(nil), series...)
	for i := 0; i < opts.Order.D; i++ {
		w = difference(w, 1)
	}
	for i := 0; i < opts.Seasonal.D; i++ {
		w = difference(w, s)
	}

	nParams := opts.Order.P + opts.Seasonal.P + opts.Order.Q + opts.Seasonal.Q
	if len(w) <= nParams {
		return nil, &ModelFitError{
			Reason: fmt.Sprintf("only %d observations remain after differencing, need more than %d parameters", len(w), nParams),
		}
	}

	params, sse, err := fitCSS(w, opts, nParams)
	if err != nil {
		return nil, err
	}

	dof := len(w) - nParams
	sigma2 := sse / float64(dof)
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) || sigma2 < 0 {
		return nil, &ModelFitError{Reason: "residual variance is not finite"}
	}

	arFull, ma := expandPolynomials(params, opts)

	// In-sample residuals on the differenced scale, zero-initialized.
	resid := residuals(w, params, opts)

	points := forecastPath(series, resid, arFull, ma, opts.Horizon)

	psi := psiWeights(arFull, ma, opts.Horizon)
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile((1 + opts.Confidence) / 2)

	out := make([]domain.ForecastPoint, opts.Horizon)
	period := lastPeriod
	cumVar := 0.0
	for h := 0; h < opts.Horizon; h++ {
		period = period.Next()
		cumVar += psi[h] * psi[h]
		se := math.Sqrt(sigma2 * cumVar)
		if math.IsNaN(points[h]) || math.IsInf(points[h], 0) || math.IsNaN(se) {
			return nil, &ModelFitError{Reason: "forecast path diverged"}
		}
		out[h] = domain.ForecastPoint{
			Period:        period,
			PointEstimate: points[h],
			LowerBound:    points[h] - z*se,
			UpperBound:    points[h] + z*se,
		}
	}

	return out, nil
}

func validateOptions(opts Options) error {
	switch {
	case opts.Horizon <= 0:
		return &ModelFitError{Reason: "horizon must be positive"}
	case opts.Confidence <= 0 || opts.Confidence >= 1:
		return &ModelFitError{Reason: "confidence level must be in (0, 1)"}
	case opts.Seasonal.Period < 1:
		return &ModelFitError{Reason: "seasonal period must be at least 1"}
	case opts.Order.P < 0 || opts.Order.D < 0 || opts.Order.Q < 0,
		opts.Seasonal.P < 0 || opts.Seasonal.D < 0 || opts.Seasonal.Q < 0:
		return &ModelFitError{Reason: "model orders must be non-negative"}
	case opts.MinObservations < opts.Order.D+opts.Seasonal.D*opts.Seasonal.Period+2:
		return &ModelFitError{Reason: "minimum observation count too small for the differencing orders"}
	}
	return nil
}

// fitCSS minimizes the conditional sum of squares of the multiplicative
// ARMA residuals on the differenced series. Stationarity is deliberately not
// enforced; parameters are only soft-bounded to keep the search finite.
func fitCSS(w []float64, opts Options, nParams int) ([]float64, float64, error) {
	objective := func(x []float64) float64 {
		for _, v := range x {
			if math.Abs(v) > 5 {
				return math.Inf(1)
			}
		}
		resid := residuals(w, x, opts)
		sse := 0.0
		for _, r := range resid {
			sse += r * r
		}
		if math.IsNaN(sse) {
			return math.Inf(1)
		}
		return sse
	}

	x0 := make([]float64, nParams)
	for i := range x0 {
		x0[i] = 0.1
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, &ModelFitError{Reason: fmt.Sprintf("optimizer did not converge: %v", err)}
	}
	if statusErr := result.Status.Err(); statusErr != nil {
		return nil, 0, &ModelFitError{Reason: fmt.Sprintf("optimizer terminated abnormally: %v", statusErr)}
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, 0, &ModelFitError{Reason: "objective is not finite at the optimum"}
	}

	return result.X, result.F, nil
}

// splitParams slices the flat parameter vector into (phi, Phi, theta, Theta).
func splitParams(params []float64, opts Options) (phi, sphi, theta, stheta []float64) {
	i := 0
	phi = params[i : i+opts.Order.P]
	i += opts.Order.P
	sphi = params[i : i+opts.Seasonal.P]
	i += opts.Seasonal.P
	theta = params[i : i+opts.Order.Q]
	i += opts.Order.Q
	stheta = params[i : i+opts.Seasonal.Q]
	return
}

// residuals runs the ARMA recursion on the differenced series with zero
// pre-sample values:
//
//	eps[t] = w[t] - sum(ar[i]*w[t-i]) - sum(ma[j]*eps[t-j])
func residuals(w []float64, params []float64, opts Options) []float64 {
	phi, sphi, theta, stheta := splitParams(params, opts)
	s := opts.Seasonal.Period

	ar := polyMul(arPolynomial(phi, 1), arPolynomial(sphi, s))
	ma := polyMul(maPolynomial(theta, 1), maPolynomial(stheta, s))

	eps := make([]float64, len(w))
	for t := range w {
		v := w[t]
		for i := 1; i < len(ar); i++ {
			if t-i < 0 {
				break
			}
			// ar[i] holds the negated AR coefficient of lag i.
			v += ar[i] * w[t-i]
		}
		for j := 1; j < len(ma); j++ {
			if t-j < 0 {
				break
			}
			v -= ma[j] * eps[t-j]
		}
		eps[t] = v
	}
	return eps
}

// expandPolynomials returns the full autoregressive polynomial, including
// the differencing operators, and the full moving-average polynomial. Both
// are returned in backshift form with coefficient index equal to the lag and
// leading coefficient 1.
func expandPolynomials(params []float64, opts Options) (arFull, ma []float64) {
	phi, sphi, theta, stheta := splitParams(params, opts)
	s := opts.Seasonal.Period

	arFull = polyMul(arPolynomial(phi, 1), arPolynomial(sphi, s))
	for i := 0; i < opts.Order.D; i++ {
		arFull = polyMul(arFull, []float64{1, -1})
	}
	for i := 0; i < opts.Seasonal.D; i++ {
		diff := make([]float64, s+1)
		diff[0] = 1
		diff[s] = -1
		arFull = polyMul(arFull, diff)
	}

	ma = polyMul(maPolynomial(theta, 1), maPolynomial(stheta, s))
	return arFull, ma
}

// forecastPath extends the observed series h steps ahead with the full-model
// recursion: future innovations are zero, past innovations come from the
// in-sample residuals.
func forecastPath(series, resid, arFull, ma []float64, h int) []float64 {
	n := len(series)
	y := make([]float64, n, n+h)
	copy(y, series)

	// Residuals are defined on the differenced scale; align them with the
	// tail of the observation index.
	eps := make([]float64, n, n+h)
	offset := n - len(resid)
	for i, r := range resid {
		eps[offset+i] = r
	}

	for step := 0; step < h; step++ {
		t := len(y)
		v := 0.0
		for i := 1; i < len(arFull); i++ {
			if t-i < 0 {
				break
			}
			v -= arFull[i] * y[t-i]
		}
		for j := 1; j < len(ma); j++ {
			if t-j < 0 {
				break
			}
			v += ma[j] * eps[t-j]
		}
		y = append(y, v)
		eps = append(eps, 0)
	}

	return y[n:]
}

// psiWeights expands the infinite moving-average representation
// psi(B) = ma(B)/arFull(B) up to h terms.
func psiWeights(arFull, ma []float64, h int) []float64 {
	psi := make([]float64, h)
	for j := 0; j < h; j++ {
		v := 0.0
		if j == 0 {
			v = 1
		} else {
			if j < len(ma) {
				v = ma[j]
			}
			for i := 1; i <= j && i < len(arFull); i++ {
				v -= arFull[i] * psi[j-i]
			}
		}
		psi[j] = v
	}
	return psi
}

// arPolynomial builds 1 - c1*B^s - c2*B^2s - ... The returned slice holds
// the polynomial coefficients by lag, so the AR coefficients appear negated.
func arPolynomial(coeffs []float64, s int) []float64 {
	poly := make([]float64, len(coeffs)*s+1)
	poly[0] = 1
	for i, c := range coeffs {
		poly[(i+1)*s] = -c
	}
	return poly
}

// maPolynomial builds 1 + c1*B^s + c2*B^2s + ...
func maPolynomial(coeffs []float64, s int) []float64 {
	poly := make([]float64, len(coeffs)*s+1)
	poly[0] = 1
	for i, c := range coeffs {
		poly[(i+1)*s] = c
	}
	return poly
}

// polyMul convolves two backshift polynomials.
func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// difference applies (1 - B^lag) once.
func difference(x []float64, lag int) []float64 {
	if len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	for i := range out {
		out[i] = x[i+lag] - x[i]
	}
	return out
}
