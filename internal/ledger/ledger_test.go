package ledger

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
)

func TestDelta_Sequence(t *testing.T) {
	l := New[html.Node]()
	n := &html.Node{Type: html.ElementNode, Data: "div"}

	var got []int
	for _, c := range []int{5, 5, 9, 3, 3, 12} {
		got = append(got, l.Delta(n, c))
	}
	assert.Equal(t, []int{5, 0, 4, 0, 0, 9}, got)
	assert.Equal(t, 12, l.Baseline(n))
}

func TestDelta_IndependentNodes(t *testing.T) {
	l := New[html.Node]()
	a := &html.Node{Type: html.ElementNode, Data: "div"}
	b := &html.Node{Type: html.ElementNode, Data: "div"}

	assert.Equal(t, 7, l.Delta(a, 7))
	assert.Equal(t, 7, l.Delta(b, 7), "identity, not content, keys the ledger")
	assert.Equal(t, 0, l.Delta(a, 7))
	assert.Equal(t, 2, l.Len())
}

func TestBaseline_Unseen(t *testing.T) {
	l := New[html.Node]()
	assert.Equal(t, 0, l.Baseline(&html.Node{}))
	assert.Equal(t, 0, l.Delta(nil, 10))
	assert.Equal(t, 0, l.Len())
}

func TestEntryDroppedAfterCollection(t *testing.T) {
	l := New[html.Node]()
	func() {
		n := &html.Node{Type: html.ElementNode, Data: "article"}
		l.Delta(n, 3)
	}()
	assert.Eventually(t, func() bool {
		runtime.GC()
		return l.Len() == 0
	}, 5*time.Second, 20*time.Millisecond)
}
