package validation

import (
	"fmt"
	"math"

	"algotrade/pkg/types"
)

// minDirectionalSamples is the smallest sample a binomial or t-test will
// run against; below this the tests are too noisy to mean anything.
const minDirectionalSamples = 3

// TestSignal runs both hypothesis tests against one signal's snapshots and
// folds them into a single result with a recommendation. snapshots must
// already have ForwardReturn populated (see CalculateForwardReturns);
// entries that are Neutral or missing a forward return are ignored.
func TestSignal(signalName string, snapshots []SignalSnapshotRecord, minSamples int) (types.HypothesisResult, error) {
	directional := make([]SignalSnapshotRecord, 0, len(snapshots))
	for _, s := range snapshots {
		if s.IsDirectional() {
			directional = append(directional, s)
		}
	}

	if len(directional) == 0 {
		return types.HypothesisResult{}, fmt.Errorf("signal %s: no validated directional predictions", signalName)
	}

	wins, total := 0, 0
	for _, s := range directional {
		total++
		if s.IsCorrectPrediction() {
			wins++
		}
	}
	if total < minDirectionalSamples {
		return types.HypothesisResult{}, fmt.Errorf("signal %s: insufficient predictions: need at least %d, got %d", signalName, minDirectionalSamples, total)
	}

	binomialP := binomialTest(wins, total, 0.5)
	wilsonLower, wilsonUpper := wilsonCI(wins, total, 1.96)

	signedReturns := make([]float64, 0, len(directional))
	for _, s := range directional {
		if r, ok := s.SignedReturn(); ok {
			signedReturns = append(signedReturns, r)
		}
	}

	ttestP, meanReturn := 1.0, 0.0
	if len(signedReturns) >= minDirectionalSamples {
		ttestP, meanReturn = tTestPValue(signedReturns)
	}

	result := types.HypothesisResult{
		SignalName:        signalName,
		SampleSize:        total,
		BinomialPValue:    binomialP,
		WilsonLowerBound:  wilsonLower,
		WilsonUpperBound:  wilsonUpper,
		TTestPValue:       ttestP,
		MeanForwardReturn: meanReturn,
		Recommendation:    recommend(total, binomialP, wilsonLower, minSamples),
	}
	return result, nil
}

// tTestPValue runs a one-sample t-test against H0: mean = 0 using the
// normal approximation (valid for the sample sizes this system expects),
// returning the two-tailed p-value and the sample mean.
func tTestPValue(returns []float64) (pValue, mean float64) {
	n := float64(len(returns))

	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean = sum / n

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= n - 1
	stdDev := math.Sqrt(variance)
	stdErr := stdDev / math.Sqrt(n)

	tStat := 0.0
	if stdErr > math.SmallestNonzeroFloat64 {
		tStat = mean / stdErr
	}

	pValue = clamp01(2 * (1 - standardNormalCDF(math.Abs(tStat))))
	return pValue, mean
}

// recommend maps a signal's test results onto a go/no-go verdict: approved
// once the binomial test clears p<0.05 and its Wilson lower bound beats
// chance, conditional approval at p<0.10, needs-more-data below the
// configured sample floor, rejected otherwise.
func recommend(sampleSize int, binomialP, wilsonLower float64, minSamples int) types.ValidationRecommendation {
	if sampleSize < minSamples {
		return types.RecNeedsMoreData
	}
	if binomialP < 0.05 && wilsonLower > 0.5 {
		return types.RecApproved
	}
	if binomialP < 0.10 {
		return types.RecConditionalApproval
	}
	return types.RecRejected
}
