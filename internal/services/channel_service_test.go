package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-slack-scheduler/internal/domain"
)

type fakeLister struct {
	byTypes map[string][]domain.Channel
	userCh  []domain.Channel
	failAll bool
	calls   []string
}

func (f *fakeLister) ListConversations(_ context.Context, _, types string) ([]domain.Channel, error) {
	f.calls = append(f.calls, types)
	chans, ok := f.byTypes[types]
	if f.failAll || !ok {
		return nil, errors.New("missing_scope")
	}
	return chans, nil
}

func (f *fakeLister) ListUserConversations(_ context.Context, _ string) ([]domain.Channel, error) {
	f.calls = append(f.calls, "user")
	if f.failAll || f.userCh == nil {
		return nil, errors.New("missing_scope")
	}
	return f.userCh, nil
}

func TestChannelService_FirstStrategyWinsAndFilters(t *testing.T) {
	l := &fakeLister{byTypes: map[string][]domain.Channel{
		"public_channel,private_channel": {
			{ID: "C1", Name: "general", IsGeneral: true, IsMember: true},
			{ID: "C2", Name: "random", IsMember: false},
			{ID: "C3", Name: "old", IsMember: true, IsArchived: true},
		},
	}}
	s := NewChannelService(l, fakeCreds{tokens: map[string]string{"u1": "tok"}})

	res, err := s.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Degraded || res.Source != "conversations" {
		t.Fatalf("unexpected listing meta: %+v", res)
	}
	if len(res.Channels) != 1 || res.Channels[0].ID != "C1" {
		t.Fatalf("expected only member, non-archived channels: %+v", res.Channels)
	}
	if len(l.calls) != 1 {
		t.Fatalf("later strategies must not run after a success: %v", l.calls)
	}
}

func TestChannelService_FallsThroughChain(t *testing.T) {
	l := &fakeLister{userCh: []domain.Channel{{ID: "C9", Name: "team", IsMember: true}}}
	s := NewChannelService(l, fakeCreds{tokens: map[string]string{"u1": "tok"}})

	res, err := s.List(context.Background(), "u1")
	if err != nil || res.Source != "user_conversations" || len(res.Channels) != 1 {
		t.Fatalf("List = %+v, %v", res, err)
	}
	if len(l.calls) != 3 {
		t.Fatalf("expected all three strategies tried, got %v", l.calls)
	}
}

func TestChannelService_DegradedFallback(t *testing.T) {
	s := NewChannelService(&fakeLister{failAll: true}, fakeCreds{tokens: map[string]string{"u1": "tok"}})

	res, err := s.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("a Slack failure must not be an error: %v", err)
	}
	if !res.Degraded || res.Warning == "" || res.Source != "fallback" {
		t.Fatalf("expected degraded listing, got %+v", res)
	}
	if len(res.Channels) != 1 || res.Channels[0].Name != "general" || !res.Channels[0].IsGeneral {
		t.Fatalf("expected the #general placeholder, got %+v", res.Channels)
	}
}

func TestChannelService_NoCredential(t *testing.T) {
	s := NewChannelService(&fakeLister{}, fakeCreds{})
	if _, err := s.List(context.Background(), "ghost"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if _, err := s.Diagnose(context.Background(), "ghost"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential from Diagnose, got %v", err)
	}
}

func TestChannelService_Diagnose(t *testing.T) {
	l := &fakeLister{byTypes: map[string][]domain.Channel{
		"public_channel": {{ID: "C1", IsMember: true}, {ID: "C2", IsMember: true}},
	}}
	s := NewChannelService(l, fakeCreds{tokens: map[string]string{"u1": "tok"}})

	rep, err := s.Diagnose(context.Background(), "u1")
	if err != nil || len(rep) != 3 {
		t.Fatalf("Diagnose = %+v, %v", rep, err)
	}
	if rep[0].OK || rep[0].Error == "" {
		t.Fatalf("first strategy should report its failure: %+v", rep[0])
	}
	if !rep[1].OK || rep[1].Count != 2 {
		t.Fatalf("second strategy should succeed with 2 channels: %+v", rep[1])
	}
}
