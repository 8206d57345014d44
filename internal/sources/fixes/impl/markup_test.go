package impl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/sources/fixes"
)

const fixesPage = `<html><body>
<div class="list">
  <a class="file-item" href="/files/fixes/Alpha%20Fix.zip">
    <div class="file-name">Alpha Fix.zip</div>
    <div class="file-size">12 MB</div>
  </a>
  <a class="file-item featured" href="https://cdn.test/Beta.RAR">
    <div class="file-name"> Beta.RAR </div>
  </a>
  <a class="file-item" href="/files/fixes/Gamma%20Patch.7z"></a>
  <a class="file-item" href="/files/fixes/dup.zip">
    <div class="file-name">Alpha Fix.zip</div>
  </a>
  <a class="other" href="/ignored.zip"><div class="file-name">Ignored.zip</div></a>
  <a class="file-item"></a>
</div>
</body></html>`

type getterFunc func(ctx context.Context, url string) ([]byte, error)

func (f getterFunc) Get(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

func TestParseMarkup(t *testing.T) {
	got, err := ParseMarkup("https://fixes.test/fixes", []byte(fixesPage))
	if err != nil {
		t.Fatalf("ParseMarkup: %v", err)
	}
	want := []fixes.Entry{
		{Title: "Alpha Fix", Download: "https://fixes.test/files/fixes/Alpha%20Fix.zip", Size: "12 MB"},
		{Title: "Beta", Download: "https://cdn.test/Beta.RAR"},
		{Title: "Gamma Patch", Download: "https://fixes.test/files/fixes/Gamma%20Patch.7z"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseMarkup mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkupScannerFetch(t *testing.T) {
	scanner := NewMarkupScanner(getterFunc(func(context.Context, string) ([]byte, error) {
		return []byte(fixesPage), nil
	}), "https://fixes.test/fixes")

	got := scanner.Fetch(context.Background())
	if got.Status != core.FetchOK || len(got.Items) != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Items[0].Kind != core.KindFix || got.Items[0].Fix.Size != "12 MB" {
		t.Fatalf("unexpected first item %+v", got.Items[0])
	}
}

func TestMarkupScannerEmptyPage(t *testing.T) {
	scanner := NewMarkupScanner(getterFunc(func(context.Context, string) ([]byte, error) {
		return []byte("<html></html>"), nil
	}), "https://fixes.test/fixes")
	if got := scanner.Fetch(context.Background()); got.Status != core.FetchEmpty {
		t.Fatalf("status = %s, want %s", got.Status, core.FetchEmpty)
	}
}

func TestEntriesFromItems(t *testing.T) {
	rows := []fileItem{
		{Name: "Delta.zip", Size: "3 MB", Href: "/files/Delta.zip"},
		{Name: "", Href: "/files/skipped.zip"},
	}
	want := []fixes.Entry{{Title: "Delta", Download: "https://fixes.test/files/Delta.zip", Size: "3 MB"}}
	if diff := cmp.Diff(want, entriesFromItems("https://fixes.test/fixes", rows)); diff != "" {
		t.Fatalf("entriesFromItems mismatch (-want +got):\n%s", diff)
	}
}
