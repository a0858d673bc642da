package target_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/cdp/cdptest"
	"github.com/grantcarthew/cdpsession/internal/protocol/target"
)

func newSession(t *testing.T, b *cdptest.Browser) *cdp.Session {
	t.Helper()
	s := cdp.NewSession(cdp.Config{Timeout: 2 * time.Second})
	require.NoError(t, s.Attach(b))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetTargets(t *testing.T) {
	t.Parallel()

	b := cdptest.NewBrowser().Result(target.CommandGetTargets, map[string]any{
		"targetInfos": []map[string]any{
			{"targetId": "T1", "type": "page", "title": "One", "url": "about:blank", "attached": false},
			{"targetId": "T2", "type": "service_worker", "title": "", "url": "", "attached": false},
		},
	})
	s := newSession(t, b)

	infos, err := target.Use(s).GetTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, target.ID("T1"), infos[0].TargetID)
	assert.Equal(t, "service_worker", infos[1].Type)
}

func TestAttach_FlatMode(t *testing.T) {
	t.Parallel()

	b := cdptest.NewBrowser().Result(target.CommandAttachToTarget, map[string]string{"sessionId": "S1"})
	s := newSession(t, b)

	sid, err := target.Use(s).Attach(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, target.SessionID("S1"), sid)
	assert.JSONEq(t, `{"targetId":"T1","flatten":true}`, string(b.Requests()[0].Params))
}

func TestCreateTarget(t *testing.T) {
	t.Parallel()

	b := cdptest.NewBrowser().Result(target.CommandCreateTarget, map[string]string{"targetId": "NEW"})
	s := newSession(t, b)

	id, err := cdp.Send(context.Background(), s, target.CreateTarget("about:blank"))
	require.NoError(t, err)
	assert.Equal(t, target.ID("NEW"), id)
}
