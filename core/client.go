package orchestration

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ClientSink receives everything the session shows or plays to the
// connected client. Calls come from the session loop only, one at a time.
type ClientSink interface {
	SendTranscript(text string, isFinal bool, sender Sender) error
	// SendAudio receives one aggregated packet. The last packet of a response
	// may be empty.
	SendAudio(packet []byte) error
	SendStatus(text string) error
	SendResponseComplete() error
}

type discardClient struct{}

func (discardClient) SendTranscript(string, bool, Sender) error { return nil }
func (discardClient) SendAudio([]byte) error                     { return nil }
func (discardClient) SendStatus(string) error                    { return nil }
func (discardClient) SendResponseComplete() error                { return nil }
