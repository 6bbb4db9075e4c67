package orchestration

// SendAudio forwards a frame of client audio to the recognizer. Frames are
// dropped while the recognizer is not open. It may be called from any
// goroutine.
func (s *Session) SendAudio(frame []byte) error {
	if len(frame) == 0 || !s.recognizing.Load() {
		return nil
	}
	return s.speechToText.SendAudio(frame)
}

// Interrupt stops the response being generated or spoken and drops the
// pending turn. It is a no-op once the session stopped.
func (s *Session) Interrupt() {
	s.post(interruptEvent{})
}
