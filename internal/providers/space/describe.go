package space

import (
	"regexp"
	"strings"
)

const maxGarmentDescription = 1000

var (
	jeansPattern  = regexp.MustCompile(`\bjeans?\b|\bdenim\b`)
	jacketPattern = regexp.MustCompile(`\bjacket\b`)
	skirtPattern  = regexp.MustCompile(`\bskirt\b`)
	shortsPattern = regexp.MustCompile(`\bshorts?\b`)
	pantsPattern  = regexp.MustCompile(`\bpants\b|\btrousers\b`)
)

const (
	lengthPriority = "The garment's designed length takes priority over the model's silhouette. Generate missing fabric/pixels if needed."
	ignoreExtras   = "Use only the clothing item; ignore any mannequin/body/hands/background in the garment image."
	negativeClause = "Do not change garment category. Do not invent extra straps/cuts."
)

// GarmentDescription builds the garment_des text for IDM-VTON. Bottoms
// named in the prompt get explicit length constraints, since the model
// otherwise crops them to the body mask.
func GarmentDescription(userPrompt string) string {
	trimmed := strings.TrimSpace(userPrompt)
	p := strings.ToLower(trimmed)

	constraints := "Preserve garment identity, silhouette, length, seams, and texture. Photorealistic."
	switch {
	case jeansPattern.MatchString(p) && !jacketPattern.MatchString(p):
		constraints = "Full-length denim jeans extending to ankles. " + lengthPriority + " Preserve denim wash, detailed seams, whiskering, pockets, and hem. Photorealistic."
	case skirtPattern.MatchString(p):
		constraints = "Skirt with designed length preserved. " + lengthPriority + " Keep pleats/shape, fabric texture, seams, and hem. Photorealistic."
	case shortsPattern.MatchString(p):
		constraints = "Shorts with designed inseam length. " + lengthPriority + " Preserve fit, seams, and hem. Photorealistic."
	case pantsPattern.MatchString(p):
		constraints = "Pants with full length. " + lengthPriority + " Preserve length, fit, seams, and fabric texture. Photorealistic."
	}

	prefix := ""
	if trimmed != "" {
		prefix = trimmed + ". "
	}
	out := negativeClause + " " + constraints + " " + prefix + ignoreExtras
	if len(out) > maxGarmentDescription {
		out = truncateRunes(out, maxGarmentDescription)
	}
	return out
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
