package games

import (
	_ "embed"
	"fmt"
	"math"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sevenbit/faircore/internal/models"
)

//go:embed tables.yaml
var plinkoCurvesYAML []byte

// plinkoCurve shapes one risk profile. Bucket payouts follow
// (p_center/p_k)^shape before normalization: shape 0 is flat, higher shapes
// concentrate value in the rare edge buckets.
type plinkoCurve struct {
	Shape float64 `yaml:"shape"`
}

type plinkoCurves struct {
	Risks map[models.PlinkoRisk]plinkoCurve `yaml:"risks"`
}

var curves = func() plinkoCurves {
	var c plinkoCurves
	if err := yaml.Unmarshal(plinkoCurvesYAML, &c); err != nil {
		panic(fmt.Sprintf("games: bad embedded plinko curves: %v", err))
	}
	for _, risk := range []models.PlinkoRisk{models.PlinkoRiskLow, models.PlinkoRiskMedium, models.PlinkoRiskHigh} {
		if _, ok := c.Risks[risk]; !ok {
			panic(fmt.Sprintf("games: plinko curve missing risk %q", risk))
		}
	}
	return c
}()

type plinkoTableKey struct {
	risk      models.PlinkoRisk
	rows      int
	houseEdge float64
}

var (
	plinkoTableMu    sync.Mutex
	plinkoTableCache = make(map[plinkoTableKey][]float64)
)

// binomialProb is C(rows, k) / 2^rows, the chance of landing in bucket k.
func binomialProb(rows, k int) float64 {
	c := 1.0
	for i := 0; i < k; i++ {
		c = c * float64(rows-i) / float64(i+1)
	}
	return c / math.Pow(2, float64(rows))
}

// PlinkoTable returns the bucket multipliers for a risk/row-count pair,
// normalized so that sum(p_k * m_k) lands at 1-houseEdge before the final
// two-decimal truncation (which can only pull the total down).
func PlinkoTable(risk models.PlinkoRisk, rows int, houseEdge float64) []float64 {
	key := plinkoTableKey{risk: risk, rows: rows, houseEdge: houseEdge}

	plinkoTableMu.Lock()
	defer plinkoTableMu.Unlock()
	if table, ok := plinkoTableCache[key]; ok {
		return table
	}

	shape := curves.Risks[risk].Shape
	pCenter := binomialProb(rows, rows/2)

	raw := make([]float64, rows+1)
	var ev float64
	for k := 0; k <= rows; k++ {
		p := binomialProb(rows, k)
		raw[k] = math.Pow(pCenter/p, shape)
		ev += p * raw[k]
	}

	scale := (1 - houseEdge) / ev
	table := make([]float64, rows+1)
	for k := 0; k <= rows; k++ {
		table[k] = truncate(raw[k]*scale, 2)
	}

	plinkoTableCache[key] = table
	return table
}
