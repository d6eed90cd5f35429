package domain

// Blueprint stage markers as the data-automation service reports them.
const (
	StageDevelopment = "DEVELOPMENT"
	StageLive        = "LIVE"
)

// BlueprintInfo is the subset of an extraction blueprint this toolkit reads.
// The schema is treated as an opaque document and only carried through on
// promotion.
type BlueprintInfo struct {
	ARN    string
	Name   string
	Stage  string
	Schema string
}

// Live reports whether the blueprint is in the LIVE stage.
func (b BlueprintInfo) Live() bool {
	return b.Stage == StageLive
}
