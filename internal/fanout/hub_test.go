package fanout_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

func startHub(t *testing.T) (*fanout.Hub, string) {
	t.Helper()

	hub := fanout.NewHub(fanout.HubConfig{}, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHub_DeliversToJoinedChannel(t *testing.T) {
	hub, url := startHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requestID := uuid.New()
	channel := fanout.RequestChannel(requestID)
	msgs := make(chan fanout.Message, 4)

	go fanout.NewSubscriber(url, nil).Subscribe(ctx, []string{channel}, msgs)

	require.Eventually(t, func() bool { return hub.Members(channel) == 1 }, 2*time.Second, 10*time.Millisecond)

	p := &ledger.Payment{ID: uuid.New(), RequestID: &requestID, Status: ledger.PaymentPaid}
	ev := fanout.PaymentEvent(fanout.PaymentPaid, p, time.Now().UTC())

	require.NoError(t, hub.Publish(ctx, fanout.UnitChannel(uuid.New()), fanout.PaymentPaid, ev))
	require.NoError(t, hub.Publish(ctx, channel, fanout.PaymentPaid, ev))

	select {
	case m := <-msgs:
		assert.Equal(t, channel, m.Channel, "messages for channels the client did not join must not arrive")
		assert.Equal(t, fanout.PaymentPaid, m.Event)

		got, err := m.Decode()
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.EntityID)
		assert.Equal(t, "paid", got.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, url := startHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := make(chan fanout.Message, 1)
	b := make(chan fanout.Message, 1)

	go fanout.NewSubscriber(url, nil).Subscribe(ctx, nil, a)
	go fanout.NewSubscriber(url, nil).Subscribe(ctx, nil, b)

	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, fanout.BroadcastChannel, fanout.UnitUpdated, map[string]string{"unit": "1A"}))

	for _, ch := range []chan fanout.Message{a, b} {
		select {
		case m := <-ch:
			assert.Equal(t, fanout.UnitUpdated, m.Event)
		case <-time.After(2 * time.Second):
			t.Fatal("broadcast not delivered")
		}
	}
}

func TestHub_SignoffLeavesChannels(t *testing.T) {
	hub, url := startHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	channel := fanout.RequestChannel(uuid.New())

	done := make(chan error, 1)
	go func() { done <- fanout.NewSubscriber(url, nil).Subscribe(ctx, []string{channel}, make(chan fanout.Message)) }()

	require.Eventually(t, func() bool { return hub.Members(channel) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Members(channel))
	assert.NoError(t, hub.Publish(context.Background(), channel, fanout.NotificationCreated, "x"))
}

func TestHub_UserChannelsArePrivate(t *testing.T) {
	hub := fanout.NewHub(fanout.HubConfig{}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, err := actor.FromHeaders(r.Header); err == nil {
			r = r.WithContext(actor.WithActor(r.Context(), a))
		}

		hub.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	headers := func(a actor.Actor) http.Header {
		h := http.Header{}
		h.Set(actor.HeaderID, a.ID.String())
		h.Set(actor.HeaderRole, string(a.Role))

		return h
	}

	resident := actor.Actor{ID: uuid.New(), Role: actor.RoleResident}
	neighbour := actor.Actor{ID: uuid.New(), Role: actor.RoleResident}
	admin := actor.Actor{ID: uuid.New(), Role: actor.RoleBuildingAdmin}

	own := fanout.UserChannel(resident.ID)
	other := fanout.UserChannel(neighbour.ID)
	marker := fanout.RequestChannel(uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The marker channel is joined last, so once it has two members every earlier join
	// command has been handled.
	go fanout.NewSubscriber(url, headers(resident)).Subscribe(ctx, []string{own, other, marker}, make(chan fanout.Message, 4))
	go fanout.NewSubscriber(url, headers(admin)).Subscribe(ctx, []string{other, marker}, make(chan fanout.Message, 4))

	require.Eventually(t, func() bool { return hub.Members(marker) == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, hub.Members(own))
	assert.Equal(t, 1, hub.Members(other), "only the manager may watch another user's channel")

	anonymous := fanout.UserChannel(uuid.New())
	anonMarker := fanout.RequestChannel(uuid.New())

	go fanout.NewSubscriber(url, nil).Subscribe(ctx, []string{anonymous, anonMarker}, make(chan fanout.Message, 4))

	require.Eventually(t, func() bool { return hub.Members(anonMarker) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Members(anonymous))
}
