package citations

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAllowedArticles_SurfaceForms(t *testing.T) {
	text := `Conforme al Art. 165 del TRLC, y según lo previsto en el
Artículo 5, el deudor deberá solicitar la declaración de concurso.
Véase también ART 443 y el articulo 2.4 de la misma norma.`

	allowed := ExtractAllowedArticles(text)

	for _, want := range []string{"165", "5", "443", "2.4"} {
		_, ok := allowed[want]
		assert.True(t, ok, "expected article %s in allow-list", want)
	}
	assert.Len(t, allowed, 4)
}

func TestExtractAllowedArticles_Enumerations(t *testing.T) {
	allowed := ExtractAllowedArticles("según los arts. 5, 6 y 7 del TRLC")

	for _, want := range []string{"5", "6", "7"} {
		_, ok := allowed[want]
		assert.True(t, ok, "expected article %s in allow-list", want)
	}

	allowed = ExtractAllowedArticles("los Artículos 442 y 443 presumen la culpabilidad")
	assert.Len(t, allowed, 2)
	_, ok := allowed["443"]
	assert.True(t, ok)
}

// A singular citation followed by a prose number is not an enumeration:
// "3" here is a duration, and letting it in would allow citing an Art. 3
// that the retrieved text never mentions.
func TestExtractAllowedArticles_ProseNumberAfterSingularCitation(t *testing.T) {
	allowed := ExtractAllowedArticles("conforme al Art. 5 y 3 meses después del vencimiento")

	_, ok := allowed["5"]
	assert.True(t, ok)
	_, leaked := allowed["3"]
	assert.False(t, leaked, "prose number admitted into the allow-list")
	assert.Len(t, allowed, 1)
}

func TestExtractAllowedArticles_NoReferences(t *testing.T) {
	allowed := ExtractAllowedArticles("texto legal sin citas articuladas")
	assert.Empty(t, allowed)
}

func TestNormalizeArticleReference(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Art. 165", "165", true},
		{"Artículo 165", "165", true},
		{"ARTÍCULO 165.2", "165.2", true},
		{"ART 165", "165", true},
		{"art 5", "5", true},
		{"165", "165", true},
		{"2.4", "2.4", true},
		{"la disposición adicional tercera", "", false},
		{"", "", false},
		{"Art.", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeArticleReference(tc.in)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFilterLegalArticles_Partition(t *testing.T) {
	allowed := ExtractAllowedArticles("Art. 5 y Artículo 165 del TRLC")

	valid, discarded := FilterLegalArticles(
		[]string{"Art. 5", "Art. 999", "Artículo 165", "sin número"},
		allowed, slog.Default(),
	)

	assert.Equal(t, []string{"Art. 5", "Artículo 165"}, valid)
	assert.Equal(t, []string{"Art. 999", "sin número"}, discarded)
}

func TestFilterLegalArticles_EmptyAllowList(t *testing.T) {
	valid, discarded := FilterLegalArticles([]string{"Art. 5"}, map[string]struct{}{}, nil)
	assert.Empty(t, valid)
	assert.Equal(t, []string{"Art. 5"}, discarded)
}
