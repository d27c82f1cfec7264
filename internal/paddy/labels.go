package paddy

import "fmt"

// DiseaseLabel is one of the fixed disease classes. The numeric value is the
// index of the class in the disease model's output vector.
type DiseaseLabel int

const (
	BacterialLeafBlight DiseaseLabel = iota
	BacterialLeafStreak
	BacterialPanicleBlight
	Blast
	BrownSpot
	DeadHeart
	DownyMildew
	Hispa
	Normal
	Tungro

	numLabels
)

// Labels lists every disease label in model output order.
var Labels = [numLabels]DiseaseLabel{
	BacterialLeafBlight,
	BacterialLeafStreak,
	BacterialPanicleBlight,
	Blast,
	BrownSpot,
	DeadHeart,
	DownyMildew,
	Hispa,
	Normal,
	Tungro,
}

var labelNames = [numLabels]string{
	BacterialLeafBlight:    "bacterial_leaf_blight",
	BacterialLeafStreak:    "bacterial_leaf_streak",
	BacterialPanicleBlight: "bacterial_panicle_blight",
	Blast:                  "blast",
	BrownSpot:              "brown_spot",
	DeadHeart:              "dead_heart",
	DownyMildew:            "downy_mildew",
	Hispa:                  "hispa",
	Normal:                 "normal",
	Tungro:                 "tungro",
}

// Valid reports whether l is one of the fixed labels.
func (l DiseaseLabel) Valid() bool {
	return l >= 0 && l < numLabels
}

func (l DiseaseLabel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("DiseaseLabel(%d)", int(l))
	}
	return labelNames[l]
}

// LabelNames returns the wire names in model output order.
func LabelNames() []string {
	names := make([]string, len(Labels))
	for i, l := range Labels {
		names[i] = l.String()
	}
	return names
}
