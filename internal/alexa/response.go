package alexa

const (
	Version         = "1.0"
	CardTitlePrefix = "MyQ - "
	plainText       = "PlainText"
	simpleCard      = "Simple"
)

type ResponseEnvelope struct {
	Version           string         `json:"version"`
	SessionAttributes map[string]any `json:"session_attributes"`
	Response          *Speechlet     `json:"response,omitempty"`
}

type Speechlet struct {
	OutputSpeech     OutputSpeech `json:"outputSpeech"`
	Card             Card         `json:"card"`
	Reprompt         Reprompt     `json:"reprompt"`
	ShouldEndSession bool         `json:"should_end_session"`
}

type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Card struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Reprompt struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

// NewSpeechlet builds a plain-text response with a matching simple card. The
// session stays open only when there is something to reprompt with.
func NewSpeechlet(title, output, reprompt string) *Speechlet {
	return &Speechlet{
		OutputSpeech: OutputSpeech{Type: plainText, Text: output},
		Card: Card{
			Type:    simpleCard,
			Title:   CardTitlePrefix + title,
			Content: output,
		},
		Reprompt:         Reprompt{OutputSpeech: OutputSpeech{Type: plainText, Text: reprompt}},
		ShouldEndSession: reprompt == "",
	}
}

// Text is the spoken output, empty for a nil speechlet.
func (s *Speechlet) Text() string {
	if s == nil {
		return ""
	}
	return s.OutputSpeech.Text
}

// NewResponseEnvelope wraps a speechlet. Session attributes are always empty
// since nothing is carried between requests.
func NewResponseEnvelope(s *Speechlet) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version:           Version,
		SessionAttributes: map[string]any{},
		Response:          s,
	}
}
