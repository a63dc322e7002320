package trends

// velocityMultipliers weights a trend's volume by how fast it is moving.
var velocityMultipliers = map[string]float64{
	"breakout":    3.0,
	"spike":       3.0,
	"rising":      2.0,
	"rising_fast": 2.5,
	"high":        2.0,
	"steady":      1.0,
	"moderate":    1.0,
	"slow":        0.5,
	"declining":   0.3,
}

// sentimentBoost gives emotionally charged trends a small edge.
var sentimentBoost = map[string]float64{
	"excited":       1.1,
	"celebrating":   1.1,
	"controversial": 1.05,
	"concerned":     1.05,
	"curious":       1.0,
}

// ViralScore estimates a 0–100 viral coefficient from volume, velocity and
// sentiment. Unknown velocity or sentiment labels count as neutral.
func ViralScore(volume int, velocity, sentiment string) int {
	mult, ok := velocityMultipliers[NormalizeVelocity(velocity)]
	if !ok {
		mult = 1.0
	}
	boost, ok := sentimentBoost[sentiment]
	if !ok {
		boost = 1.0
	}

	score := int(float64(volume) / 1000 * mult * boost / 50)
	if score > 100 {
		return 100
	}
	return score
}

// Score returns the viral score of a normalized trend.
func (t *Trend) Score() int {
	return ViralScore(t.Volume(), t.Velocity, t.Sentiment())
}
