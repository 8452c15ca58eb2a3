package buffer

import "testing"

func TestDiff(t *testing.T) {
	cases := []struct {
		old, new   string
		start, end int
		repl       string
	}{
		{"1A3", "1B3", 1, 2, "B"},
		{"abc", "abc", 3, 3, ""},
		{"abc", "abxc", 2, 2, "x"},
		{"abc", "ac", 1, 2, ""},
		{"", "new", 0, 0, "new"},
		{"aaa", "aa", 2, 3, ""},
		{"|:", "𝄆", 0, 2, "𝄆"},
	}

	for _, tc := range cases {
		p := Diff([]rune(tc.old), []rune(tc.new))
		if p.Start != tc.start || p.End != tc.end || string(p.Replacement) != tc.repl {
			t.Logf("Diff(%q, %q) = [%d,%d) %q", tc.old, tc.new, p.Start, p.End, string(p.Replacement))
			t.Fail()
		}
		if p.NewCursor != NoCursor {
			t.Fail()
		}
		if p.IsEmpty() != (tc.old == tc.new) {
			t.Logf("Diff(%q, %q).IsEmpty() = %v", tc.old, tc.new, p.IsEmpty())
			t.Fail()
		}

		line := NewLine(tc.old)
		if err := line.ApplyPatch(p); err != nil || line.String() != tc.new {
			t.Fail()
		}
	}
}

func TestPatchInverse(t *testing.T) {
	line := NewLine("hello world")
	p := Replace(6, 11, []rune("gopher"))
	removed := line.Slice(p.Start, p.End)

	if err := line.ApplyPatch(p); err != nil {
		t.Fatal(err)
	}
	if line.String() != "hello gopher" {
		t.Fail()
	}

	inv := p.Inverse(removed)
	if err := line.ApplyPatch(inv); err != nil {
		t.Fatal(err)
	}
	if line.String() != "hello world" || inv.NewCursor != 11 {
		t.Fail()
	}
}

func TestStringMapper(t *testing.T) {
	s := "1😀3"

	if UTF16Len(s) != 4 {
		t.Fail()
	}
	if CodepointToUTF16(s, 0) != 0 || CodepointToUTF16(s, 1) != 1 || CodepointToUTF16(s, 2) != 3 || CodepointToUTF16(s, 9) != 4 {
		t.Fail()
	}
	if UTF16ToCodepoint(s, 0) != 0 || UTF16ToCodepoint(s, 1) != 1 || UTF16ToCodepoint(s, 2) != 1 || UTF16ToCodepoint(s, 3) != 2 {
		t.Fail()
	}
	if UTF16ToCodepoint(s, 40) != 3 {
		t.Fail()
	}
}
