package chapters

import (
	"testing"

	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(body string) *providers.Page {
	return &providers.Page{Address: "https://bato.to/chapter/1", Body: []byte(body)}
}

const chapterHTML = `<html><head><title>Solo Leveling - Vol.1 Ch.2: The Return - Bato.To</title></head>
<body><script>
  const batoWord = "x";
  const images = ["//img1.example/a/000.jpg","//img1.example/a/001.jpg", "https://img2.example/b/002.jpg"];
  const other = 3;
</script></body></html>`

func TestExtract(t *testing.T) {
	m, err := Extract(page(chapterHTML))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"//img1.example/a/000.jpg",
		"//img1.example/a/001.jpg",
		"https://img2.example/b/002.jpg",
	}, m.Images)
	assert.Equal(t, "Solo Leveling - Vol.1 Ch.2: The Return", m.RawTitle)
	assert.Equal(t, "Solo_Leveling_Vol_1_Ch_2_The_Return", m.Title)
}

func TestExtractImagesWithoutSemicolon(t *testing.T) {
	body := `<title>A - B</title><script>var images = ["//x/1.jpg"]
	var next = null</script>`

	m, err := Extract(page(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"//x/1.jpg"}, m.Images)
	assert.Equal(t, "A", m.Title)
}

func TestExtractLegacySelectedTitle(t *testing.T) {
	body := `<html><body><select><option value="1">Ch.1</option><option value="2" selected="true">Ch.2 Something</option></select>
<script>var images = ["//x/1.jpg","//x/2.jpg"];</script></body></html>`

	m, err := Extract(page(body))
	require.NoError(t, err)
	assert.Equal(t, "Ch.2 Something", m.RawTitle)
	assert.Equal(t, "Ch_2_Something", m.Title)
}

func TestExtractSingleSegmentTitle(t *testing.T) {
	m, err := Extract(page(`<title>Oneshot</title><script>images = ["//x/1.jpg"];</script>`))
	require.NoError(t, err)
	assert.Equal(t, "Oneshot", m.Title)
}

func TestExtractFailures(t *testing.T) {
	tests := map[string]string{
		"no image block": `<title>A - B</title><p>nothing here</p>`,
		"empty list":     `<title>A - B</title><script>images = [];</script>`,
		"not a list":     `<title>A - B</title><script>images = {"a": 1};</script>`,
		"broken json":    `<title>A - B</title><script>images = ["//x/1.jpg", ;</script>`,
		"missing title":  `<script>images = ["//x/1.jpg"];</script>`,
		"blank title":    `<title>   </title><script>images = ["//x/1.jpg"];</script>`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(page(body))
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.KindExtraction))
			assert.Contains(t, err.Error(), "https://bato.to/chapter/1")
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"Chapter 1":          "Chapter_1",
		"  spaced  out  ":    "_spaced_out_",
		"a--b__c":            "a_b_c",
		"Épisode 2: début!":  "_pisode_2_d_but_",
		"already_safe_Name1": "already_safe_Name1",
		"":                   "",
		"!!!":                "_",
	}

	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"Solo Leveling - Vol.1 Ch.2",
		"__x__",
		"日本語 タイトル 3",
		"a/b\\c:d*e?f",
		"",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), in)
	}
}
