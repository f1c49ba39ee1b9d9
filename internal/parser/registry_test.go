package parser

import (
	"context"
	"testing"
)

type stubParser struct{ key string }

func (s *stubParser) FetchAndParse(context.Context, string) ([]ExtractedEvent, error) {
	return nil, nil
}

func TestRegistryDispatch(t *testing.T) {
	Register("registry-test", func(env Env) Parser {
		return &stubParser{key: "registry-test"}
	})

	got := Get("registry-test", Env{})
	if _, ok := got.(*stubParser); !ok {
		t.Fatalf("Get returned %T, want *stubParser", got)
	}
}

func TestRegistryUnknownKeyFallsBackToGeneric(t *testing.T) {
	got := Get("no-such-parser", Env{})
	if _, ok := got.(*GenericParser); !ok {
		t.Fatalf("Get returned %T, want *GenericParser fallback", got)
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	Register("registry-dup", func(Env) Parser { return &stubParser{} })
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	Register("registry-dup", func(Env) Parser { return &stubParser{} })
}

func TestExtractedEventValidate(t *testing.T) {
	t.Parallel()

	valid := ExtractedEvent{
		Name:      "Unaffiliated Dressage",
		DateStart: "2025-06-14",
		VenueName: "Manor Farm",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	tests := []struct {
		name string
		ev   ExtractedEvent
	}{
		{"missing name", ExtractedEvent{DateStart: "2025-06-14", VenueName: "Manor Farm"}},
		{"missing date", ExtractedEvent{Name: "Show", VenueName: "Manor Farm"}},
		{"missing venue", ExtractedEvent{Name: "Show", DateStart: "2025-06-14"}},
		{"non-ISO date", ExtractedEvent{Name: "Show", DateStart: "14/06/2025", VenueName: "Manor Farm"}},
		{"bad end date", ExtractedEvent{Name: "Show", DateStart: "2025-06-14", DateEnd: "June", VenueName: "Manor Farm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ev.Validate(); err == nil {
				t.Errorf("Validate accepted %+v", tt.ev)
			}
		})
	}
}
