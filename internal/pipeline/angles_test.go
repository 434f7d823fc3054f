package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/poserisk/internal/pose"
)

func TestParseAngles(t *testing.T) {
	t.Parallel()

	want := []pose.AngleTriple{
		{Hip: 85, Knee: 90, Shoulder: 50},
		{Hip: 86.5, Knee: 91, Shoulder: 49},
	}

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		got, err := ParseAnglesJSON([]byte(`{"angles": [[85, 90, 50], [86.5, 91, 49]]}`))
		if err != nil {
			t.Fatalf("ParseAnglesJSON() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ParseAnglesJSON() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		got, err := ParseAnglesYAML([]byte("angles:\n  - [85, 90, 50]\n  - [86.5, 91, 49]\n"))
		if err != nil {
			t.Fatalf("ParseAnglesYAML() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ParseAnglesYAML() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty list is valid here", func(t *testing.T) {
		t.Parallel()

		got, err := ParseAnglesJSON([]byte(`{"angles": []}`))
		if err != nil || len(got) != 0 {
			t.Errorf("ParseAnglesJSON() = %v, %v", got, err)
		}
	})

	invalid := []struct {
		name  string
		parse func([]byte) ([]pose.AngleTriple, error)
		data  string
	}{
		{"json two values", ParseAnglesJSON, `{"angles": [[85, 90]]}`},
		{"json four values", ParseAnglesJSON, `{"angles": [[85, 90, 50, 1]]}`},
		{"json string value", ParseAnglesJSON, `{"angles": [[85, "90", 50]]}`},
		{"json missing field", ParseAnglesJSON, `{"triples": [[85, 90, 50]]}`},
		{"json garbage", ParseAnglesJSON, `[1, 2`},
		{"yaml two values", ParseAnglesYAML, "angles:\n  - [85, 90]\n"},
		{"yaml missing field", ParseAnglesYAML, "frames: 3\n"},
		{"yaml garbage", ParseAnglesYAML, "angles: [[85, 90, 50]\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := tt.parse([]byte(tt.data)); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestReadAngleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "angles.yml")
	if err := os.WriteFile(yamlPath, []byte("angles:\n  - [10, 20, 30]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "angles.txt")
	if err := os.WriteFile(jsonPath, []byte(`{"angles": [[10, 20, 30]]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{yamlPath, jsonPath} {
		got, err := ReadAngleFile(path)
		if err != nil {
			t.Fatalf("ReadAngleFile(%s) error = %v", path, err)
		}
		if diff := cmp.Diff([]pose.AngleTriple{{Hip: 10, Knee: 20, Shoulder: 30}}, got); diff != "" {
			t.Errorf("ReadAngleFile(%s) mismatch (-want +got):\n%s", path, diff)
		}
	}

	if _, err := ReadAngleFile(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}
