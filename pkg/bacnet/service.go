package bacnet

// CommunicationState is the DeviceCommunicationControl enable/disable
// parameter.
type CommunicationState uint8

const (
	CommunicationEnable            CommunicationState = 0
	CommunicationDisable           CommunicationState = 1
	CommunicationDisableInitiation CommunicationState = 2
)

// String returns the state name.
func (s CommunicationState) String() string {
	switch s {
	case CommunicationEnable:
		return "enable"
	case CommunicationDisable:
		return "disable"
	case CommunicationDisableInitiation:
		return "disable-initiation"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a defined state.
func (s CommunicationState) Valid() bool {
	return s <= CommunicationDisableInitiation
}
