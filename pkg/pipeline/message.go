package pipeline

// Messages the pipeline puts in the message slot.
const (
	MsgDrowsy          = "Drowsiness detected!"
	MsgCalibrating     = "Calibrating gaze center... look straight for 1s"
	MsgStartCalibFirst = "Start the camera before calibrating"
)

// slot is the single user-facing message line. Urgent messages overwrite
// it; advisories only appear when it is empty.
type slot struct {
	text string
}

// Show replaces the current message.
func (s *slot) Show(text string) {
	s.text = text
}

// Offer shows text only when no message is displayed.
func (s *slot) Offer(text string) bool {
	if s.text != "" {
		return false
	}
	s.text = text
	return true
}

// Clear empties the slot.
func (s *slot) Clear() {
	s.text = ""
}

// Text returns the current message.
func (s *slot) Text() string {
	return s.text
}
