package player

// NopVisual is the pointer feedback used when the host cannot draw.
type NopVisual struct{}

func (NopVisual) ShowPointer(x, y float64) {}
func (NopVisual) HidePointer()             {}
func (NopVisual) ShowGesture()             {}
func (NopVisual) HideGesture()             {}

// NopSentinel treats every gesture as settled immediately.
type NopSentinel struct{}

func (NopSentinel) Activate()   {}
func (NopSentinel) Deactivate() {}
func (NopSentinel) Settled(targetDesc, gesture string) bool {
	return true
}
