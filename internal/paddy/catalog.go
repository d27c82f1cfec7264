package paddy

// Recommendation is the treatment advice attached to a diagnosis.
type Recommendation struct {
	Chemical string `json:"chemical"`
	Organic  string `json:"organic"`
}

// FallbackRecommendation is returned for labels the catalog has no entry for.
var FallbackRecommendation = Recommendation{
	Chemical: "No chemical recommendation available",
	Organic:  "No organic recommendation available",
}

// Catalog maps every disease label to its recommendation. It is indexed by
// label, so its length always matches the label set. A Catalog must not be
// modified once a Pipeline is using it.
type Catalog [numLabels]Recommendation

// DefaultCatalog returns the built-in treatment table.
func DefaultCatalog() *Catalog {
	return &Catalog{
		BacterialLeafBlight: {
			Chemical: "Streptocycline (100 ppm) + Copper oxychloride (0.3%)",
			Organic:  "Spray neem oil (3%) and cow dung decoction as preventive measure",
		},
		BacterialLeafStreak: {
			Chemical: "Streptocycline + Copper hydroxide (0.2%)",
			Organic:  "Use Panchagavya or Jeevamrutham sprays to improve immunity",
		},
		BacterialPanicleBlight: {
			Chemical: "Improve drainage, avoid excess nitrogen, apply recommended fungicides",
			Organic:  "Foliar application of Trichoderma-based biocontrol agents",
		},
		Blast: {
			Chemical: "Tricyclazole @ 0.6 g/l or Isoprothiolane @ 1.5 ml/l",
			Organic:  "Use Pseudomonas fluorescens (10 g/l) as foliar spray",
		},
		BrownSpot: {
			Chemical: "Mancozeb @ 2.5 g/l or Carbendazim @ 1 g/l",
			Organic:  "Neem leaf extract spray (5%) and compost tea foliar spray",
		},
		DeadHeart: {
			Chemical: "Apply Carbofuran granules or Chlorantraniliprole",
			Organic:  "Release Trichogramma chilonis parasitoids and use neem cake",
		},
		DownyMildew: {
			Chemical: "Metalaxyl + Mancozeb @ 2 g/l",
			Organic:  "Use Bacillus subtilis-based bio-fungicides",
		},
		Hispa: {
			Chemical: "Chlorpyrifos 20EC @ 2 ml/l or Quinalphos 25EC @ 2 ml/l",
			Organic:  "Neem seed kernel extract (NSKE 5%) spray",
		},
		Normal: {
			Chemical: "No pesticide needed. Crop is healthy.",
			Organic:  "No treatment necessary. Maintain good field hygiene.",
		},
		Tungro: {
			Chemical: "Control green leafhopper using Imidacloprid @ 0.5 ml/l",
			Organic:  "Introduce natural predators like Cyrtorhinus lividipennis",
		},
	}
}

// Lookup returns the recommendation for label, or FallbackRecommendation if
// the label is outside the fixed set or has no entry.
func (c *Catalog) Lookup(label DiseaseLabel) Recommendation {
	if c == nil || !label.Valid() {
		return FallbackRecommendation
	}
	rec := c[label]
	if rec.Chemical == "" && rec.Organic == "" {
		return FallbackRecommendation
	}
	return rec
}
