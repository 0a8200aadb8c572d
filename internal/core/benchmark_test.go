package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/JonMunkholm/mapfield/internal/maptype"
)

// ============================================================================
// Dataset Benchmarks
// ============================================================================

// BenchmarkParseDataset benchmarks the dataset parser on a municipality-sized table.
func BenchmarkParseDataset(b *testing.B) {
	raw := generateDataset(400, ",")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseDataset(raw, DatasetOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParseDataset_Large benchmarks a dataset close to the default row limit.
func BenchmarkParseDataset_Large(b *testing.B) {
	raw := generateDataset(50000, ";")
	b.SetBytes(int64(len(raw)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseDataset(raw, DatasetOptions{Delimiter: ";"}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCoerceNumber(b *testing.B) {
	testCases := []string{"12", "-4.5", " 3.25 ", "1e3", "12 people", "n/a"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CoerceNumber(tc)
		}
	}
}

// BenchmarkUTF8Sanitizer_LargeDataset benchmarks the reader chain on mostly ASCII input.
func BenchmarkUTF8Sanitizer_LargeDataset(b *testing.B) {
	raw := "\xEF\xBB\xBF" + generateDataset(20000, ",")
	b.SetBytes(int64(len(raw)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := io.Copy(io.Discard, NewDatasetReader(strings.NewReader(raw), 0)); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Range and Render Benchmarks
// ============================================================================

func BenchmarkClassifyRanges(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ClassifyRanges("100,100-200,200-300,300-400,400"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRenderJSON benchmarks the full pipeline from a stored document.
func BenchmarkRenderJSON(b *testing.B) {
	svc := NewService(maptype.Default(), ServiceOptions{})
	doc := []byte(fmt.Sprintf(
		`{"chart":{"map":"hc-nl-municipalities"},"legend":{"enabled":"1","ranges":"10,10-20,20"},"series":{"data":%q}}`,
		generateDataset(400, ","),
	))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.RenderJSON(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRenderJSONParallel(b *testing.B) {
	svc := NewService(maptype.Default(), ServiceOptions{})
	doc := []byte(`{"chart":{"map":"hc-world"},"series":{"data":"nl,1\nbe,2\nde,3"}}`)

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := svc.RenderJSON(ctx, doc); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// generateDataset returns rows of "gm<n><sep><value>".
func generateDataset(rows int, sep string) string {
	var sb strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "gm%04d%s%d.%d\n", i, sep, i%250, i%10)
	}
	return sb.String()
}
