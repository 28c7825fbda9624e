package geometry

import "sync"

var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA726",
	"#AB47BC", "#66BB6A", "#EF5350", "#26C6DA",
	"#FF7043", "#9CCC65", "#5C6BC0", "#FFCA28",
	"#FF8A65", "#A1C181", "#D32F2F", "#7B1FA2",
	"#512DA8", "#303F9F", "#1976D2", "#0288D1",
}

// ColorAssigner hands out display colors in palette order so that
// settlements loaded next to each other get different colors.
type ColorAssigner struct {
	mu   sync.Mutex
	next int
}

func NewColorAssigner() *ColorAssigner {
	return &ColorAssigner{}
}

func (c *ColorAssigner) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	color := palette[c.next%len(palette)]
	c.next++
	return color
}

// Reset starts the palette over, used before a fresh load.
func (c *ColorAssigner) Reset() {
	c.mu.Lock()
	c.next = 0
	c.mu.Unlock()
}
