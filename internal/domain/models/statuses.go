package models

// Membership statuses stored in a profile's teams map and on team member
// records. The remote data is free-form strings; these are the values this
// application writes.
const (
	StatusOwner    = "OWNER"
	StatusAccepted = "ACCEPTED"
	StatusPending  = "PENDING"
	StatusInvited  = "INVITED"
)

// Message types.
const (
	MessageTypeInvitation  = "INVITATION"
	MessageTypeTeamMessage = "TEAM_MESSAGE"
	MessageTypeNotice      = "NOTICE"
)
