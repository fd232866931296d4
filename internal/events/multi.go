package events

import (
	"errors"

	"sunolegal/internal/domain"
)

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []domain.EventPublisher

func (m MultiPublisher) PublishJSON(eventType string, payload interface{}) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishJSON(eventType, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
