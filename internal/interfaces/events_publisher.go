package interfaces

// EventPublisher fans committed-transaction events out to consumers.
// Publishing is best-effort; a failure never unwinds a commit.
type EventPublisher interface {
	Publish(topic string, event any) error
}
