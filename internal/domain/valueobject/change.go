package valueobject

import "fmt"

type ChangeType int

const (
	ChangeTypeNoop ChangeType = iota
	ChangeTypeCreate
	ChangeTypeUpdate
	ChangeTypeDelete
)

func (ct ChangeType) String() string {
	switch ct {
	case ChangeTypeNoop:
		return "NOOP"
	case ChangeTypeCreate:
		return "CREATE"
	case ChangeTypeUpdate:
		return "UPDATE"
	case ChangeTypeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Change is one reconciliation decision for a single record slot.
type Change struct {
	changeType ChangeType
	domain     string
	subDomain  string
	recordType string
	line       string
	value      string
	oldValue   string
	recordID   string
	reason     string
	applied    bool
}

func NewChange(changeType ChangeType, domain, subDomain, recordType, line string) *Change {
	return &Change{
		changeType: changeType,
		domain:     domain,
		subDomain:  subDomain,
		recordType: recordType,
		line:       line,
	}
}

func (c *Change) Type() ChangeType   { return c.changeType }
func (c *Change) Domain() string     { return c.domain }
func (c *Change) SubDomain() string  { return c.subDomain }
func (c *Change) RecordType() string { return c.recordType }
func (c *Change) Line() string       { return c.line }
func (c *Change) Value() string      { return c.value }
func (c *Change) OldValue() string   { return c.oldValue }
func (c *Change) RecordID() string   { return c.recordID }
func (c *Change) Reason() string     { return c.reason }
func (c *Change) Applied() bool      { return c.applied }

func (c *Change) FQDN() string {
	if c.subDomain == "@" || c.subDomain == "" {
		return c.domain
	}
	return c.subDomain + "." + c.domain
}

func (c *Change) WithValue(value string) *Change {
	n := c.Clone()
	n.value = value
	return n
}

func (c *Change) WithOldValue(value string) *Change {
	n := c.Clone()
	n.oldValue = value
	return n
}

func (c *Change) WithRecordID(id string) *Change {
	n := c.Clone()
	n.recordID = id
	return n
}

func (c *Change) WithReason(reason string) *Change {
	n := c.Clone()
	n.reason = reason
	return n
}

func (c *Change) WithApplied(applied bool) *Change {
	n := c.Clone()
	n.applied = applied
	return n
}

func (c *Change) Equals(other *Change) bool {
	if other == nil {
		return false
	}
	return *c == *other
}

func (c *Change) Clone() *Change {
	n := *c
	return &n
}

func (c *Change) String() string {
	s := fmt.Sprintf("%s %s %s [%s] %s", c.changeType, c.FQDN(), c.recordType, c.line, c.value)
	if c.recordID != "" {
		s += " id=" + c.recordID
	}
	return s
}
