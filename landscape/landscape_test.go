package landscape

import (
	"testing"

	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

func TestAddAndLookupSites(t *testing.T) {
	upland := &params.Ecoregion{Index: 0, Name: "upland", Active: true}
	lowland := &params.Ecoregion{Index: 1, Name: "lowland", Active: true}

	l := New(3, 4)
	if l.Cells() != 12 {
		t.Fatalf("Cells = %d, want 12", l.Cells())
	}

	for _, c := range []struct {
		row, col int
		eco      *params.Ecoregion
	}{
		{2, 3, upland},
		{0, 1, lowland},
		{1, 0, upland},
	} {
		if _, err := l.AddSite(c.row, c.col, components.NewSiteState(c.eco, nil)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := l.AddSite(0, 1, components.NewSiteState(upland, nil)); err == nil {
		t.Error("adding a site twice succeeded")
	}
	if _, err := l.AddSite(3, 0, components.NewSiteState(upland, nil)); err == nil {
		t.Error("adding a site outside the raster succeeded")
	}

	if l.ActiveCount() != 3 {
		t.Errorf("ActiveCount = %d, want 3", l.ActiveCount())
	}

	sites := l.Sites()
	want := []int{1, 4, 11}
	if len(sites) != len(want) {
		t.Fatalf("Sites returned %d, want %d", len(sites), len(want))
	}
	for i, s := range sites {
		if s.Location.ID != want[i] {
			t.Errorf("site %d has id %d, want %d", i, s.Location.ID, want[i])
		}
	}

	site, ok := l.Site(l.ID(2, 3))
	if !ok || site.Ecoregion != upland {
		t.Fatalf("Site(2, 3) = %v, %v", site, ok)
	}
	site.Shade = 4
	if again, _ := l.Site(11); again.Shade != 4 {
		t.Error("changes through Site pointer not stored")
	}
	if _, ok := l.Site(0); ok {
		t.Error("inactive cell returned a site")
	}

	counts := l.ActiveSiteCount([]*params.Ecoregion{upland, lowland})
	if counts[0] != 2 || counts[1] != 1 {
		t.Errorf("ActiveSiteCount = %v, want [2 1]", counts)
	}
}

func TestSitesInIDOrderRegardlessOfInsertOrder(t *testing.T) {
	eco := &params.Ecoregion{Index: 0, Name: "upland", Active: true}
	l := New(2, 3)

	for _, id := range []int{5, 0, 3, 2} {
		row, col := id/3, id%3
		if _, err := l.AddSite(row, col, components.NewSiteState(eco, nil)); err != nil {
			t.Fatal(err)
		}
	}

	sites := l.Sites()
	want := []int{0, 2, 3, 5}
	if len(sites) != len(want) {
		t.Fatalf("Sites returned %d, want %d", len(sites), len(want))
	}
	for i, s := range sites {
		if s.Location.ID != want[i] {
			t.Errorf("site %d has id %d, want %d", i, s.Location.ID, want[i])
		}
		if s.Location.Row != want[i]/3 || s.Location.Col != want[i]%3 {
			t.Errorf("site %d at (%d, %d)", want[i], s.Location.Row, s.Location.Col)
		}
		byID, ok := l.Site(s.Location.ID)
		if !ok || byID != s.State {
			t.Errorf("Sites state for %d is not the stored state", s.Location.ID)
		}
	}
}
