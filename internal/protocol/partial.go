package protocol

import (
	"encoding/xml"
)

// Event is the outcome of one partial-AJAX exchange: either a Redirect
// the client must follow, or a PartialUpdate mapping element ids to new
// fragments.
type Event interface {
	isEvent()
}

// Redirect instructs the client to GET the given URL and treat the
// resulting document as the step's result.
type Redirect struct {
	URL string
}

// PartialUpdate carries in-place fragment replacements keyed by element id.
type PartialUpdate struct {
	TargetID string
	Updates  map[string]string
	// order preserves the document order of update ids, for deterministic
	// allow-list checking.
	order []string
}

func (Redirect) isEvent()      {}
func (PartialUpdate) isEvent() {}

type xmlPartialResponse struct {
	XMLName  xml.Name     `xml:"partial-response"`
	ID       string       `xml:"id,attr"`
	Redirect *xmlRedirect `xml:"redirect"`
	Changes  *xmlChanges  `xml:"changes"`
}

type xmlRedirect struct {
	URL string `xml:"url,attr"`
}

type xmlChanges struct {
	Updates []xmlUpdate `xml:"update"`
}

type xmlUpdate struct {
	ID   string `xml:"id,attr"`
	Body string `xml:",chardata"`
}

// parseEvent decodes the site's minimal XML dialect: a partial-response
// element carrying exactly one of a redirect or a changes list.
func parseEvent(body []byte) (Event, error) {
	var resp xmlPartialResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Reason: "not a partial-response document: " + err.Error()}
	}
	switch {
	case resp.Redirect != nil:
		if resp.Redirect.URL == "" {
			return nil, &MalformedResponseError{Reason: "redirect without url"}
		}
		return Redirect{URL: resp.Redirect.URL}, nil
	case resp.Changes != nil:
		update := PartialUpdate{
			TargetID: resp.ID,
			Updates:  make(map[string]string, len(resp.Changes.Updates)),
		}
		for _, u := range resp.Changes.Updates {
			update.Updates[u.ID] = u.Body
			update.order = append(update.order, u.ID)
		}
		return update, nil
	}
	return nil, &MalformedResponseError{Reason: "neither redirect nor changes present"}
}
