package candidates

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

func TestShortlist_ExcludesUnrelatedNames(t *testing.T) {
	f, err := NewFilter(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	crawl := entity.CrawlRecord{ID: "c1", URL: "https://sydneycafe.example", CompanyName: "Sydney Cafe"}
	registry := []entity.RegistryRecord{{ABN: "1", LegalName: "Melbourne Bakery Pty Ltd", StatusCode: "ACT"}}

	if got := f.Shortlist(crawl, registry); len(got) != 0 {
		t.Fatalf("expected empty shortlist, got %+v", got)
	}
}

func TestShortlist_ExcludesInactiveRecords(t *testing.T) {
	f, _ := NewFilter(0)
	crawl := entity.CrawlRecord{ID: "c1", CompanyName: "Acme Tech"}
	registry := []entity.RegistryRecord{
		{ABN: "1", LegalName: "Acme Technology Pty Ltd", StatusCode: "CAN"},
		{ABN: "2", LegalName: "Acme Technology Pty Ltd", StatusCode: ""},
		{ABN: "3", LegalName: "Acme Technology Pty Ltd", StatusCode: "Active"},
	}

	got := f.Shortlist(crawl, registry)
	if len(got) != 1 || got[0].Record.ABN != "3" {
		t.Fatalf("expected only the active record, got %+v", got)
	}
	for _, r := range got {
		if !r.Record.Active() {
			t.Fatalf("inactive record %s shortlisted", r.Record.ABN)
		}
	}
}

func TestShortlist_CapsAndRanks(t *testing.T) {
	f, _ := NewFilter(0)
	crawl := entity.CrawlRecord{ID: "c1", CompanyName: "Acme Tech Sydney"}

	registry := make([]entity.RegistryRecord, 0, 101)
	for i := 99; i >= 0; i-- {
		registry = append(registry, entity.RegistryRecord{
			ABN:        fmt.Sprintf("%03d", i),
			LegalName:  "Acme Tech Sydney Group Pty Ltd",
			StatusCode: "ACT",
		})
	}
	registry = append(registry, entity.RegistryRecord{ABN: "999", LegalName: "Acme Technology Sydney Pty Ltd", StatusCode: "ACT"})

	got := f.Shortlist(crawl, registry)
	if len(got) != MaxShortlist {
		t.Fatalf("expected %d candidates, got %d", MaxShortlist, len(got))
	}
	if got[0].Record.ABN != "999" || got[0].QuickScore != 1 {
		t.Fatalf("expected the exact abbreviation match first, got %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.QuickScore > prev.QuickScore {
			t.Fatalf("shortlist not sorted by quick score at %d", i)
		}
		if cur.QuickScore == prev.QuickScore && cur.Record.ABN < prev.Record.ABN {
			t.Fatalf("ties not broken by ABN at %d", i)
		}
	}
}

func TestShortlist_SmallerCap(t *testing.T) {
	f, err := NewFilter(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	crawl := entity.CrawlRecord{ID: "c1", CompanyName: "Acme"}
	registry := []entity.RegistryRecord{
		{ABN: "3", LegalName: "Acme", StatusCode: "ACT"},
		{ABN: "1", LegalName: "Acme", StatusCode: "ACT"},
		{ABN: "2", LegalName: "Acme", StatusCode: "ACT"},
	}
	got := f.Shortlist(crawl, registry)
	if len(got) != 2 || got[0].Record.ABN != "1" || got[1].Record.ABN != "2" {
		t.Fatalf("unexpected shortlist %+v", got)
	}
}

func TestShortlist_DomainPreScreen(t *testing.T) {
	f, _ := NewFilter(0)
	crawl := entity.CrawlRecord{ID: "c1", URL: "www.bluefox.com.au", CompanyName: "Home"}
	registry := []entity.RegistryRecord{
		{ABN: "1", LegalName: "Zeta Holdings Pty Ltd", TradingNames: []string{"Blue Fox"}, StatusCode: "ACT"},
		{ABN: "2", LegalName: "Red Fox Pty Ltd", StatusCode: "ACT"},
	}

	got := f.Shortlist(crawl, registry)
	if len(got) != 1 || got[0].Record.ABN != "1" || !got[0].DomainMatch {
		t.Fatalf("expected domain pre-screen to keep the trading name match, got %+v", got)
	}
}

func TestShortlist_TradingNameQuickScore(t *testing.T) {
	f, _ := NewFilter(0)
	crawl := entity.CrawlRecord{ID: "c1", CompanyName: "Harbour Dental"}
	registry := []entity.RegistryRecord{
		{ABN: "1", LegalName: "Smith Family Trust", TradingNames: []string{"Harbour Dental Care"}, StatusCode: "ACT"},
	}
	got := f.Shortlist(crawl, registry)
	if len(got) != 0 {
		t.Fatalf("expected 2/3 overlap to miss the 0.70 bar, got %+v", got)
	}

	registry[0].TradingNames = []string{"Harbour Dental"}
	if got := f.Shortlist(crawl, registry); len(got) != 1 {
		t.Fatalf("expected trading name match, got %+v", got)
	}
}

func TestNewFilter_RejectsCap(t *testing.T) {
	for _, limit := range []int{-1, MaxShortlist + 1} {
		if _, err := NewFilter(limit); err == nil {
			t.Fatalf("expected error for cap %d", limit)
		}
	}
}

func TestDomainTokens(t *testing.T) {
	cases := map[string][]string{
		"https://www.acme-tech.com.au/about": {"acme", "tech", "acmetech"},
		"bluefox.com":                        {"bluefox"},
		"http://shop.acme.io":                {"acme"},
		"https://xn--caf-dma.com.au":         {"café"},
		"":                                   nil,
		"://":                                nil,
	}
	for input, want := range cases {
		got := DomainTokens(input)
		if len(got) == 0 && len(want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("DomainTokens(%q)=%v, want %v", input, got, want)
		}
	}
}
