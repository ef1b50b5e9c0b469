// Package crawler walks a site depth-first, mapping every page reachable
// through same-domain anchors and script-driven buttons.
package crawler

// frontier is the LIFO work list of pages still to visit. Popping the most
// recently pushed page reproduces a recursive depth-first walk without
// growing the call stack.
type frontier struct {
	stack []frontierItem
}

type frontierItem struct {
	URL   string
	Depth int
}

func newFrontier() *frontier {
	return &frontier{stack: make([]frontierItem, 0)}
}

// PushChildren schedules urls at depth so that urls[0] is popped first.
func (f *frontier) PushChildren(urls []string, depth int) {
	for i := len(urls) - 1; i >= 0; i-- {
		f.Push(urls[i], depth)
	}
}

// Push adds a page to the top of the stack.
func (f *frontier) Push(url string, depth int) {
	f.stack = append(f.stack, frontierItem{URL: url, Depth: depth})
}

// Pop removes and returns the most recently pushed page.
func (f *frontier) Pop() (string, int, bool) {
	if len(f.stack) == 0 {
		return "", 0, false
	}
	item := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return item.URL, item.Depth, true
}

// Len returns the number of pages waiting.
func (f *frontier) Len() int {
	return len(f.stack)
}
