package e2e

import (
	"fmt"
	"strings"
)

// CorpusDocument is a document of the E2E corpus. Signature is a phrase that appears only in it.
type CorpusDocument struct {
	Name      string
	Signature string
	Content   string
}

// Corpus holds the documents uploaded by corpus-wide tests.
type Corpus struct {
	Documents []CorpusDocument
}

// BuildCorpus returns n text and markdown documents (n is capped at the number of topics),
// each with a unique signature phrase.
func BuildCorpus(n int) *Corpus {
	topics := []struct {
		slug, phrase, body string
	}{
		{"harbor", "tidal harbor schedule", "Ferries leave the harbor twice a day. The tidal harbor schedule shifts by an hour each week."},
		{"orchard", "apple orchard pruning", "Trees are pruned in late winter. Apple orchard pruning keeps the canopy open to light."},
		{"bakery", "sourdough starter feeding", "The bakery keeps its culture warm. Sourdough starter feeding happens every twelve hours."},
		{"observatory", "meteor shower viewing", "The dome opens after sunset. Meteor shower viewing peaks in mid August."},
		{"library", "rare manuscript handling", "Gloves are not required for paper. Rare manuscript handling follows the conservator's checklist."},
		{"garage", "brake pad replacement", "Pads wear faster on city routes. Brake pad replacement is due every thirty thousand kilometers."},
		{"clinic", "vaccine cold chain", "Vaccines arrive on dry ice. The vaccine cold chain is logged at every hand-off."},
		{"vineyard", "grape harvest timing", "Sugar levels are sampled daily. Grape harvest timing depends on acidity as well."},
		{"museum", "fossil casting workshop", "Visitors may book a seat. The fossil casting workshop uses plaster and silicone molds."},
		{"stadium", "pitch drainage system", "Rain drains within minutes. The pitch drainage system pumps water to a cistern."},
		{"brewery", "hop dry addition", "Aroma comes late in the process. Hop dry addition takes place after fermentation slows."},
		{"airport", "runway lighting check", "Lights are inspected every night. The runway lighting check is logged before the first arrival."},
	}
	if n > len(topics) {
		n = len(topics)
	}
	docs := make([]CorpusDocument, 0, n)
	for i := 0; i < n; i++ {
		t := topics[i]
		ext := ".txt"
		content := t.body
		if i%2 == 1 {
			ext = ".md"
			content = fmt.Sprintf("# %s\n\n%s", strings.ToUpper(t.slug[:1])+t.slug[1:], t.body)
		}
		docs = append(docs, CorpusDocument{Name: t.slug + ext, Signature: t.phrase, Content: content})
	}
	return &Corpus{Documents: docs}
}
