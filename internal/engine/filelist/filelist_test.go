package filelist

import (
	"errors"
	"testing"

	"github.com/dshills/textstore/internal/engine/textfile"
)

// newFile loads content into its own allocation with spare capacity, so
// that the slice just past the content is still a valid address.
func newFile(t *testing.T, content string) *textfile.TextFile {
	t.Helper()
	data := make([]byte, len(content), len(content)+8)
	copy(data, content)
	return textfile.Load(data)
}

// fixtures returns lists holding different combinations of four files.
func fixtures(t *testing.T) []*FileList {
	t.Helper()
	a, b, c, d := newFile(t, "aaa"), newFile(t, "bbb"), newFile(t, "ccc"), newFile(t, "ddd")

	combos := [][]*textfile.TextFile{
		{},
		{a},
		{a, b},
		{b, d},
		{a, c, d},
		{a, d},
		{c},
		{a, b, c, d},
		{d, c, b, a},
	}

	lists := make([]*FileList, 0, len(combos))
	for _, files := range combos {
		l := New()
		for _, f := range files {
			if !l.Insert(f) {
				t.Fatalf("Insert(%q) failed", f.Bytes())
			}
		}
		lists = append(lists, l)
	}
	return lists
}

func snapshot(l *FileList) []*textfile.TextFile {
	out := make([]*textfile.TextFile, l.Len())
	for i := range out {
		out[i] = l.At(i)
	}
	return out
}

func sameFiles(a, b []*textfile.TextFile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInsertIntoEmpty(t *testing.T) {
	l := New()
	f := newFile(t, "file")

	if !l.Insert(f) {
		t.Fatal("Insert into empty list failed")
	}
	if l.Len() != 1 || l.At(0) != f {
		t.Errorf("Len() = %d, At(0) = %p", l.Len(), l.At(0))
	}
	if l.Insert(f) {
		t.Error("second Insert should report the file as present")
	}
	if l.Insert(nil) {
		t.Error("Insert(nil) should fail")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d after rejected inserts, want 1", l.Len())
	}
}

func TestInsertDuplicateFourFiles(t *testing.T) {
	l := New()
	a, b, c, d := newFile(t, "A"), newFile(t, "B"), newFile(t, "C"), newFile(t, "D")
	for _, f := range []*textfile.TextFile{a, b, c, d} {
		l.Insert(f)
	}

	if l.Insert(b) {
		t.Error("re-inserting B should fail")
	}
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}
}

func TestInsertIdempotent(t *testing.T) {
	for n, l := range fixtures(t) {
		before := snapshot(l)
		for i, f := range before {
			if l.Insert(f) {
				t.Errorf("list %d: re-inserting file %d succeeded", n, i)
			}
			if !sameFiles(before, snapshot(l)) {
				t.Errorf("list %d: contents changed", n)
			}
		}
	}
}

func TestInsertOverlappingAlias(t *testing.T) {
	for n, l := range fixtures(t) {
		before := snapshot(l)
		for i, f := range before {
			alias := textfile.Load(f.Bytes())
			if l.Insert(alias) {
				t.Errorf("list %d: alias of file %d was inserted", n, i)
			}
			if !sameFiles(before, snapshot(l)) {
				t.Errorf("list %d: contents changed", n)
			}

			// A view covering only part of the buffer overlaps as well.
			partial := textfile.Load(f.Bytes()[1:2])
			if l.Insert(partial) {
				t.Errorf("list %d: partial view of file %d was inserted", n, i)
			}
		}
	}
}

func TestRemoveThenInsertRestoresOrder(t *testing.T) {
	for n, l := range fixtures(t) {
		before := snapshot(l)
		for i, f := range before {
			if !l.Remove(f) {
				t.Fatalf("list %d: Remove(file %d) failed", n, i)
			}
			if l.Len() != len(before)-1 {
				t.Fatalf("list %d: Len() = %d after Remove", n, l.Len())
			}
			if !l.Insert(f) {
				t.Fatalf("list %d: Insert(file %d) failed", n, i)
			}
			if !sameFiles(before, snapshot(l)) {
				t.Errorf("list %d: order changed after re-inserting file %d", n, i)
			}
		}
	}
}

func TestInsertThenRemoveNewFile(t *testing.T) {
	for n, l := range fixtures(t) {
		before := snapshot(l)
		f := newFile(t, "NEW")

		if !l.Insert(f) {
			t.Fatalf("list %d: Insert failed", n)
		}
		if l.Len() != len(before)+1 {
			t.Fatalf("list %d: Len() = %d", n, l.Len())
		}
		if !l.Remove(f) {
			t.Fatalf("list %d: Remove failed", n)
		}
		if !sameFiles(before, snapshot(l)) {
			t.Errorf("list %d: contents changed", n)
		}
		if l.Remove(f) {
			t.Errorf("list %d: second Remove succeeded", n)
		}
	}
}

func TestRemoveAliasIsNotFound(t *testing.T) {
	l := New()
	f := newFile(t, "content")
	l.Insert(f)

	if l.Remove(textfile.Load(f.Bytes())) {
		t.Error("removing an alias should not remove the registered file")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestSortedByAddress(t *testing.T) {
	l := fixtures(t)[8]
	for i := 1; i < l.Len(); i++ {
		prev, cur := l.At(i-1), l.At(i)
		if cur.Compare(prev.Bytes()) != -1 {
			t.Errorf("file %d does not precede file %d", i-1, i)
		}
	}
}

func TestFileOf(t *testing.T) {
	for n, l := range fixtures(t) {
		for i := 0; i < l.Len(); i++ {
			f := l.At(i)
			data := f.Bytes()

			for off := 0; off < len(data); off++ {
				if got := l.FileOf(data[off:]); got != f {
					t.Errorf("list %d: FileOf(file %d + %d) = %p, want %p", n, i, off, got, f)
				}
			}
			if got := l.FileOf(data[len(data):]); got != nil {
				t.Errorf("list %d: FileOf past the end of file %d = %p, want nil", n, i, got)
			}
		}
	}
}

func TestFileOfUnknown(t *testing.T) {
	other := []byte("NEW")
	for n, l := range fixtures(t) {
		if got := l.FileOf(other); got != nil {
			t.Errorf("list %d: FileOf(unregistered) = %p", n, got)
		}
		if got := l.FileOf(nil); got != nil {
			t.Errorf("list %d: FileOf(nil) = %p", n, got)
		}
	}
}

func TestFileOfSharedBacking(t *testing.T) {
	// Files carved out of one allocation sit next to each other.
	data := []byte("0123456789abcdef")
	l := New()
	parts := []*textfile.TextFile{
		textfile.Load(data[12:16]),
		textfile.Load(data[0:4]),
		textfile.Load(data[8:12]),
		textfile.Load(data[4:8]),
	}
	for _, f := range parts {
		if !l.Insert(f) {
			t.Fatalf("Insert(%q) failed", f.Bytes())
		}
	}

	for off := range data {
		f := l.FileOf(data[off:])
		if f == nil {
			t.Fatalf("FileOf(%d) = nil", off)
		}
		if want := parts[[]int{1, 3, 2, 0}[off/4]]; f != want {
			t.Errorf("FileOf(%d) = %q, want %q", off, f.Bytes(), want.Bytes())
		}
	}

	if l.Insert(textfile.Load(data[3:5])) {
		t.Error("a view spanning two files should be rejected")
	}
}

func TestEmptyFiles(t *testing.T) {
	l := New()
	e1, e2 := textfile.Load(nil), textfile.Load([]byte{})
	f := newFile(t, "x")

	for _, file := range []*textfile.TextFile{f, e1, e2} {
		if !l.Insert(file) {
			t.Fatalf("Insert failed")
		}
	}
	if l.Insert(e1) {
		t.Error("the same empty file was inserted twice")
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	// Empty files precede every non-empty file.
	if l.At(2) != f {
		t.Error("non-empty file should come last")
	}
	if got := l.FileOf(f.Bytes()); got != f {
		t.Errorf("FileOf = %p, want %p", got, f)
	}

	if !l.Remove(e1) || l.Len() != 2 {
		t.Fatal("Remove(empty) failed")
	}
	if l.At(0) != e2 || l.At(1) != f {
		t.Error("unexpected order after removing an empty file")
	}
	if l.Remove(e1) {
		t.Error("second Remove of an empty file succeeded")
	}
}

func TestGrowAndShrink(t *testing.T) {
	data := make([]byte, 400)
	l := New(WithGrain(4))

	var files []*textfile.TextFile
	for i := 0; i < 100; i++ {
		f := textfile.Load(data[i*4 : i*4+4])
		files = append(files, f)
		if !l.Insert(f) {
			t.Fatalf("Insert(%d) failed", i)
		}
		if l.Cap()%4 != 0 {
			t.Fatalf("Cap() = %d is not a multiple of the grain", l.Cap())
		}
	}
	if l.Len() != 100 {
		t.Fatalf("Len() = %d", l.Len())
	}

	for i, f := range files[:90] {
		if !l.Remove(f) {
			t.Fatalf("Remove(%d) failed", i)
		}
		if slack := l.Cap() - l.Len(); slack > 8 {
			t.Fatalf("slack %d exceeds two grains", slack)
		}
	}
	for i, f := range files[90:] {
		if l.FileOf(f.Bytes()) != f {
			t.Errorf("file %d lost after shrinking", 90+i)
		}
	}
}

func TestCloseReleasesFiles(t *testing.T) {
	var released []string
	release := func(name string) textfile.Option {
		return textfile.WithRelease(func() error {
			released = append(released, name)
			if name == "bad" {
				return errors.New("release failed")
			}
			return nil
		})
	}

	l := New()
	l.Insert(textfile.Load([]byte("one"), release("one")))
	l.Insert(textfile.Load([]byte("bad"), release("bad")))

	if err := l.Close(true); err == nil {
		t.Error("expected joined release error")
	}
	if len(released) != 2 {
		t.Errorf("released %v, want both files", released)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d after Close", l.Len())
	}

	kept := newFile(t, "kept")
	l2 := New()
	l2.Insert(kept)
	if err := l2.Close(false); err != nil {
		t.Errorf("Close(false): %v", err)
	}
	if kept.Len() != 4 {
		t.Error("Close(false) must not close the files")
	}
}
