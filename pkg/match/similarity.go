package match

import "github.com/Sumatoshi-tech/codedrift/pkg/node"

// Default scoring policy. The threshold and weights are tunable via Config;
// the defaults are validated by the rename tests rather than derived from
// first principles.
const (
	DefaultThreshold    = 0.62
	DefaultNameWeight   = 0.40
	DefaultParamsWeight = 0.15
	DefaultShapeWeight  = 0.30
	DefaultParentWeight = 0.15
)

// Config holds the rename/move similarity policy.
type Config struct {
	Threshold    float64 `mapstructure:"threshold"`
	NameWeight   float64 `mapstructure:"name_weight"`
	ParamsWeight float64 `mapstructure:"params_weight"`
	ShapeWeight  float64 `mapstructure:"shape_weight"`
	ParentWeight float64 `mapstructure:"parent_weight"`
}

// DefaultConfig returns the default similarity policy.
func DefaultConfig() Config {
	return Config{
		Threshold:    DefaultThreshold,
		NameWeight:   DefaultNameWeight,
		ParamsWeight: DefaultParamsWeight,
		ShapeWeight:  DefaultShapeWeight,
		ParentWeight: DefaultParentWeight,
	}
}

// score computes the weighted similarity of two same-kind nodes.
func (c Config) score(before, after *node.Node) float64 {
	total := c.NameWeight * editRatio(before.Name, after.Name)

	if len(before.Signature) == len(after.Signature) {
		total += c.ParamsWeight
	}

	total += c.ShapeWeight * node.ShapeSimilarity(before.Shape, after.Shape)
	total += c.ParentWeight * editRatio(before.ParentPath(), after.ParentPath())

	return total
}

// editRatio is the normalized Levenshtein similarity of two strings: 1 for
// equal strings, 0 for entirely dissimilar ones.
func editRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}

	return 1 - float64(editDistance(a, b))/float64(longest)
}

// editDistance is the Levenshtein distance between two strings, computed with
// a single reusable column in O(min(m,n)) space.
func editDistance(str1, str2 string) int {
	s1 := []rune(str1)
	s2 := []rune(str2)

	if len(s2) == 0 {
		return len(s1)
	}

	column := make([]int, len(s1)+1)
	for idx := 1; idx <= len(s1); idx++ {
		column[idx] = idx
	}

	for col, s2Rune := range s2 {
		column[0] = col + 1
		lastDiag := col

		for row := range s1 {
			oldDiag := column[row+1]

			cost := 0
			if s1[row] != s2Rune {
				cost = 1
			}

			column[row+1] = min(column[row+1]+1, column[row]+1, lastDiag+cost)
			lastDiag = oldDiag
		}
	}

	return column[len(s1)]
}
