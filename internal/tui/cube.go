package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const cubeInterval = 180 * time.Millisecond

var cubeFrames = [][]string{
	{
		"    +--------+  ",
		"   /        /|  ",
		"  /        / |  ",
		" +--------+  |  ",
		" |        |  +  ",
		" |        | /   ",
		" |        |/    ",
		" +--------+     ",
	},
	{
		"     +-------+  ",
		"    /|      /|  ",
		"   / |     / |  ",
		"  +-------+  |  ",
		"  |  +----|--+  ",
		"  | /     | /   ",
		"  |/      |/    ",
		"  +-------+     ",
	},
	{
		"  +--------+    ",
		"  |\\        \\   ",
		"  | \\        \\  ",
		"  |  +--------+ ",
		"  +  |        | ",
		"   \\ |        | ",
		"    \\|        | ",
		"     +--------+ ",
	},
	{
		"  +-------+     ",
		"  |\\      |\\    ",
		"  | \\     | \\   ",
		"  +--|----+  |  ",
		"   \\ +-------+  ",
		"    \\|      \\|  ",
		"     +-------+  ",
		"                ",
	},
}

// cube is the decorative pane; it only advances frames.
type cube struct {
	frame int
}

type cubeTickMsg struct{}

func (c cube) tick() tea.Cmd {
	return tea.Tick(cubeInterval, func(time.Time) tea.Msg { return cubeTickMsg{} })
}

func (c cube) next() cube {
	return cube{frame: (c.frame + 1) % len(cubeFrames)}
}

func (c cube) View() string {
	return strings.Join(cubeFrames[c.frame], "\n")
}
