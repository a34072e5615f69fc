package fanout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

func TestChannels(t *testing.T) {
	reqID, unitID, buildingID := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name string
		ev   fanout.Event
		want []string
	}{
		{
			name: "BroadcastOnly",
			ev:   fanout.Event{Type: fanout.PaymentCreated, EntityID: uuid.New()},
			want: []string{fanout.BroadcastChannel},
		},
		{
			name: "AllScopes",
			ev: fanout.Event{
				Type:       fanout.RequestAccepted,
				RequestID:  &reqID,
				UnitID:     &unitID,
				BuildingID: &buildingID,
			},
			want: []string{
				fanout.BroadcastChannel,
				"request:" + reqID.String(),
				"unit:" + unitID.String(),
				"building:" + buildingID.String(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fanout.Channels(tt.ev))
		})
	}
}

func TestEmitter_SwallowsPublishErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := fanout.NewMockPublisher(ctrl)

	unitID := uuid.New()
	p := &ledger.Payment{ID: uuid.New(), UnitID: &unitID, Status: ledger.PaymentOverdue}
	ev := fanout.PaymentEvent(fanout.PaymentOverdue, p, time.Now())

	pub.EXPECT().Publish(gomock.Any(), fanout.BroadcastChannel, fanout.PaymentOverdue, ev).Return(errors.New("hub down"))
	pub.EXPECT().Publish(gomock.Any(), fanout.UnitChannel(unitID), fanout.PaymentOverdue, ev).Return(nil)

	assert.NotPanics(t, func() {
		fanout.NewEmitter(pub, nil).Emit(context.Background(), ev)
	})
}

func TestEventType_Terminal(t *testing.T) {
	assert.True(t, fanout.PaymentPaid.Terminal())
	assert.True(t, fanout.RequestRejected.Terminal())
	assert.False(t, fanout.PaymentUpdated.Terminal())
	assert.False(t, fanout.PaymentOverdue.Terminal())
}
