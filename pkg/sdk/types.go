package ragchat

import (
	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

// Message is one conversation turn. Role is "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Document is a file to ingest.
type Document struct {
	Name      string // file name, the extension selects the extractor
	Data      []byte
	SessionID string // optional, records Name as the session's last source
}

// IngestResult reports what an ingestion stored.
type IngestResult struct {
	ContentHash     string
	SourceName      string
	Chunks          int
	CollectionCount int
	Note            string
	SessionID       string
}

// Question is a chat request. Zero values use the client defaults.
type Question struct {
	Text      string
	TopK      int
	Source    string
	SessionID string
	History   []Message
	MMR       *bool
}

// Passage is a retrieved chunk.
type Passage struct {
	ID       string
	Text     string
	Source   string
	Page     *int
	Distance *float64
}

// Answer is a chat reply with the passages it was grounded on.
type Answer struct {
	Text      string
	Sources   []Passage
	Model     string
	TopK      int
	Source    string
	SessionID string
}

func ingestResultFromUC(r ingestuc.Result) IngestResult {
	return IngestResult{
		ContentHash:     r.ContentHash,
		SourceName:      r.SourceName,
		Chunks:          r.AddedChunks,
		CollectionCount: r.CollectionCount,
		Note:            r.Note,
		SessionID:       r.SessionID,
	}
}

func questionToUC(q Question) chatuc.Request {
	history := make([]domchat.Turn, 0, len(q.History))
	for _, m := range q.History {
		role := domchat.Role(m.Role)
		if !role.Valid() {
			continue
		}
		history = append(history, domchat.Turn{Role: role, Content: m.Content})
	}
	return chatuc.Request{
		Question:  q.Text,
		TopK:      q.TopK,
		Source:    q.Source,
		SessionID: q.SessionID,
		History:   history,
		MMR:       q.MMR,
	}
}

func answerFromUC(a chatuc.Answer) Answer {
	out := Answer{
		Text:      a.Answer,
		Sources:   make([]Passage, len(a.UsedSources)),
		TopK:      a.Extra.TopK,
		SessionID: a.SessionID,
	}
	if a.Model != nil {
		out.Model = *a.Model
	}
	if a.Extra.Source != nil {
		out.Source = *a.Extra.Source
	}
	for i, s := range a.UsedSources {
		out.Sources[i] = Passage{ID: s.ID, Text: s.Text, Source: s.Source, Page: s.Page, Distance: s.Distance}
	}
	return out
}

func passagesFromResult(r retrieval.Result) []Passage {
	out := make([]Passage, r.Len())
	for i := range out {
		p := Passage{ID: r.IDs[i], Text: r.Contexts[i], Distance: r.Distances[i]}
		if m := r.Metas[i]; m != nil {
			p.Source = m.SourceName
			if m.PageNumber > 0 {
				page := m.PageNumber
				p.Page = &page
			}
		}
		out[i] = p
	}
	return out
}

func messagesFromDomain(msgs []domchat.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
