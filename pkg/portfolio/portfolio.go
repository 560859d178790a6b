// Package portfolio computes portfolio weights from the simple returns of a price table.
package portfolio

import (
	"math"
	"slices"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Method names a weighting scheme.
type Method string

const (
	MethodMinVariance     Method = "min-variance"
	MethodMinVarianceLong Method = "min-variance-long"
	MethodMaxSharpeLong   Method = "sharpe-long"
	MethodRiskParity      Method = "risk-parity"
	MethodERC             Method = "erc"
)

// TradingDaysPerYear converts an annual risk-free rate to a per-period one.
const TradingDaysPerYear = 252

const (
	ercTolerance     = 1e-8
	ercMaxIterations = 1000
)

// Methods lists every supported method.
func Methods() []Method {
	return []Method{MethodMinVariance, MethodMinVarianceLong, MethodMaxSharpeLong, MethodRiskParity, MethodERC}
}

// ParseMethod validates a method name.
func ParseMethod(name string) (Method, error) {
	method := Method(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Methods(), method) {
		return "", errors.Newf(errors.ErrCodeInvalidMethod, "unsupported optimization method %q", name)
	}

	return method, nil
}

// Title returns the heading printed above a method's weights.
func (m Method) Title() string {
	switch m {
	case MethodMinVariance:
		return "Min-variance portfolio weights"
	case MethodMinVarianceLong:
		return "Long-only min-variance portfolio weights"
	case MethodMaxSharpeLong:
		return "Long-only maximum Sharpe (tangency) portfolio weights"
	case MethodRiskParity:
		return "Risk-parity (inverse-volatility) portfolio weights"
	case MethodERC:
		return "Equal-risk-contribution portfolio weights"
	default:
		return string(m) + " portfolio weights"
	}
}

// Options tunes Optimize.
type Options struct {
	// RiskFree is the annual risk-free rate used by MethodMaxSharpeLong (0.02 for 2%).
	RiskFree float64
}

// Allocation is the result of an optimization. Weights sum to 1 and follow Tickers.
type Allocation struct {
	Method       Method
	Tickers      []string
	Weights      []float64
	Observations int
	// Iterations and Converged are only set by MethodERC.
	Iterations int
	Converged  bool
}

// Weight returns the weight of ticker, or 0 when it is not part of the allocation.
func (a *Allocation) Weight(ticker string) float64 {
	i := slices.Index(a.Tickers, ticker)
	if i < 0 {
		return 0
	}

	return a.Weights[i]
}

// Optimize computes method's weights from the simple returns of prices.
// Return rows with a missing value in any column are dropped.
func Optimize(method Method, prices *types.PriceTable, options Options) (*Allocation, error) {
	returns, err := returnMatrix(prices.SimpleReturns())
	if err != nil {
		return nil, err
	}

	observations, assets := returns.Dims()

	means := make([]float64, assets)
	for j := range assets {
		means[j] = stat.Mean(mat.Col(nil, j, returns), nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, returns, nil)

	allocation := &Allocation{
		Method:       method,
		Tickers:      slices.Clone(prices.Tickers),
		Observations: observations,
	}

	switch method {
	case MethodMinVariance:
		allocation.Weights, err = minVariance(&cov, false)
	case MethodMinVarianceLong:
		allocation.Weights, err = minVariance(&cov, true)
	case MethodMaxSharpeLong:
		allocation.Weights, err = maxSharpeLong(&cov, means, options.RiskFree)
	case MethodRiskParity:
		allocation.Weights, err = riskParity(&cov)
	case MethodERC:
		allocation.Weights, allocation.Iterations, allocation.Converged, err = equalRiskContribution(&cov)
	default:
		err = errors.Newf(errors.ErrCodeInvalidMethod, "unsupported optimization method %q", method)
	}

	if err != nil {
		return nil, err
	}

	return allocation, nil
}

// returnMatrix keeps the complete rows of returns as an observations x assets matrix.
func returnMatrix(returns *types.PriceTable) (*mat.Dense, error) {
	assets := returns.Columns()
	if assets == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "price table has no tickers")
	}

	data := make([]float64, 0, returns.Rows()*assets)
	rows := 0

	for i := range returns.Rows() {
		row := returns.Row(i)
		if slices.ContainsFunc(row.Values, func(v optional.Option[float64]) bool { return v.IsNone() || !isFinite(v.Unwrap()) }) {
			continue
		}

		for _, v := range row.Values {
			data = append(data, v.Unwrap())
		}

		rows++
	}

	if rows < 2 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"need at least 2 complete return observations, got %d", rows)
	}

	return mat.NewDense(rows, assets, data), nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func invert(cov *mat.SymDense) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(cov); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSingularCovariance, "covariance matrix not invertible", err)
	}

	return &inv, nil
}

// minVariance returns Σ⁻¹1 / 1ᵀΣ⁻¹1, optionally clipped to non-negative weights.
func minVariance(cov *mat.SymDense, longOnly bool) ([]float64, error) {
	inv, err := invert(cov)
	if err != nil {
		return nil, err
	}

	n := cov.SymmetricDim()
	ones := make([]float64, n)
	floats.AddConst(1, ones)

	var unscaled mat.VecDense
	unscaled.MulVec(inv, mat.NewVecDense(n, ones))

	weights := mat.Col(nil, 0, &unscaled)
	if longOnly {
		return normalizeLong(weights, "all weights non-positive under long-only constraint")
	}

	floats.Scale(1/floats.Sum(weights), weights)

	return weights, nil
}

// maxSharpeLong returns Σ⁻¹(μ - rf/252) clipped to non-negative weights.
func maxSharpeLong(cov *mat.SymDense, means []float64, riskFree float64) ([]float64, error) {
	inv, err := invert(cov)
	if err != nil {
		return nil, err
	}

	excess := slices.Clone(means)
	floats.AddConst(-riskFree/TradingDaysPerYear, excess)

	var unscaled mat.VecDense
	unscaled.MulVec(inv, mat.NewVecDense(len(excess), excess))

	return normalizeLong(mat.Col(nil, 0, &unscaled), "all weights non-positive after enforcing long-only")
}

// riskParity weights each asset by its inverse volatility.
func riskParity(cov *mat.SymDense) ([]float64, error) {
	n := cov.SymmetricDim()
	weights := make([]float64, n)

	for i := range n {
		vol := math.Sqrt(cov.At(i, i))
		if vol == 0 {
			return nil, errors.Newf(errors.ErrCodeNoFeasibleWeights, "asset %d has zero volatility", i)
		}

		weights[i] = 1 / vol
	}

	floats.Scale(1/floats.Sum(weights), weights)

	return weights, nil
}

// equalRiskContribution rescales equal weights until every asset contributes wᵢ(Σw)ᵢ = wᵀΣw / n.
// Each step multiplies wᵢ by sqrt(target / contribution).
func equalRiskContribution(cov *mat.SymDense) (weights []float64, iterations int, converged bool, err error) {
	n := cov.SymmetricDim()
	weights = make([]float64, n)
	floats.AddConst(1/float64(n), weights)

	next := make([]float64, n)

	for iterations < ercMaxIterations {
		iterations++

		w := mat.NewVecDense(n, weights)

		var sigmaW mat.VecDense
		sigmaW.MulVec(cov, w)

		target := mat.Dot(w, &sigmaW) / float64(n)

		for i := range n {
			contribution := weights[i] * sigmaW.AtVec(i)
			if contribution <= 0 {
				return nil, iterations, false, errors.Newf(errors.ErrCodeNoFeasibleWeights,
					"asset %d has a non-positive risk contribution", i)
			}

			next[i] = weights[i] * math.Sqrt(target/contribution)
		}

		floats.Scale(1/floats.Sum(next), next)

		diff := floats.Distance(next, weights, math.Inf(1))
		copy(weights, next)

		if diff < ercTolerance {
			return weights, iterations, true, nil
		}
	}

	return weights, iterations, false, nil
}

// normalizeLong zeroes negative weights and rescales the rest to sum to 1.
func normalizeLong(weights []float64, message string) ([]float64, error) {
	for i, w := range weights {
		weights[i] = math.Max(w, 0)
	}

	total := floats.Sum(weights)
	if total <= 0 || !isFinite(total) {
		return nil, errors.New(errors.ErrCodeNoFeasibleWeights, message)
	}

	floats.Scale(1/total, weights)

	return weights, nil
}
