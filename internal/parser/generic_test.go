package parser

import "testing"

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`{"events": []}`, `{"events": []}`},
		{"```json\n{\"events\": []}\n```", `{"events": []}`},
		{"```\n{\"events\": []}\n```", `{"events": []}`},
		{"  {\"events\": []}  ", `{"events": []}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVisibleText(t *testing.T) {
	t.Parallel()

	html := `<html><head><style>body{color:red}</style>
	<script>var x = 1;</script></head>
	<body><h1>June   Show</h1><p>Dressage and
	jumping</p><noscript>enable js</noscript></body></html>`

	got, err := visibleText([]byte(html))
	if err != nil {
		t.Fatal(err)
	}
	want := "June Show Dressage and jumping"
	if got != want {
		t.Errorf("visibleText = %q, want %q", got, want)
	}
}
