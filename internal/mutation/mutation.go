// Package mutation defines the wire types a browser relay uses to stream
// DOM changes of an observed chat page.
package mutation

import "encoding/json"

// Op is the type of DOM mutation observed.
type Op string

const (
	OpInsert   Op = "insert"    // node inserted at XPath; HTML carries the subtree
	OpRemove   Op = "remove"    // node at XPath removed
	OpText     Op = "text"      // character data at XPath changed to Value
	OpAttr     Op = "attr"      // attribute Name on XPath set to Value
	OpAttrDel  Op = "attr_del"  // attribute Name on XPath removed
	OpDocReset Op = "doc_reset" // entire document replaced by HTML
)

// Record is a single DOM mutation.
type Record struct {
	Op       Op     `json:"op"`
	XPath    string `json:"xpath"`
	NodeType int    `json:"node_type,omitempty"` // 1=element, 3=text, 8=comment
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    string `json:"value,omitempty"`
	OldValue string `json:"old_value,omitempty"`
	HTML     string `json:"html,omitempty"`
}

// Batch is every mutation delivered by one observer callback.
type Batch struct {
	ID        string   `json:"id"`
	PageURL   string   `json:"page_url"`
	PageID    string   `json:"page_id"`
	Seq       uint64   `json:"seq"` // monotonically increasing per page
	Records   []Record `json:"records"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
}

// UnmarshalBatch deserialises a Batch from JSON.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
