package asset

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type textAsset struct{ Body string }

type textLoader struct{}

func (textLoader) Name() string         { return "TextLoader" }
func (textLoader) Extensions() []string { return []string{"txt"} }
func (textLoader) Load(ctx *LoadContext, r io.Reader, settings []byte) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return textAsset{Body: string(b)}, nil
}

func waitForLoadState(t *testing.T, s *Server, id ID, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.HandleInternalAssetEvents()
		if s.GetLoadState(id) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for load state %v, last seen %v", want, s.GetLoadState(id))
}

func TestServerLoadRoundTrip(t *testing.T) {
	src := NewMapSource()
	src.Put("hello.txt", []byte("hello world"))

	s := NewServer(src)
	s.RegisterLoader(TypeOf[textAsset](), textLoader{})

	h := Load[textAsset](s, "hello.txt")
	waitForLoadState(t, s, h.ID(), Loaded)

	value, ok := GetAsset(s, h)
	require.True(t, ok)
	require.Equal(t, "hello world", value.Body)
}

func TestServerLoadMissingAssetFails(t *testing.T) {
	src := NewMapSource()
	s := NewServer(src)
	s.RegisterLoader(TypeOf[textAsset](), textLoader{})

	h := Load[textAsset](s, "missing.txt")
	waitForLoadState(t, s, h.ID(), Failed)
}

func TestServerSecondLoadOfSamePathReusesHandle(t *testing.T) {
	src := NewMapSource()
	src.Put("a.txt", []byte("a"))
	s := NewServer(src)
	s.RegisterLoader(TypeOf[textAsset](), textLoader{})

	h1 := Load[textAsset](s, "a.txt")
	waitForLoadState(t, s, h1.ID(), Loaded)
	h2 := Load[textAsset](s, "a.txt")
	require.Equal(t, h1.ID(), h2.ID())
}

func TestServerSnapshotReportsLoadStateCounts(t *testing.T) {
	src := NewMapSource()
	src.Put("a.txt", []byte("a"))
	s := NewServer(src)
	s.RegisterLoader(TypeOf[textAsset](), textLoader{})

	h := Load[textAsset](s, "a.txt")
	waitForLoadState(t, s, h.ID(), Loaded)

	snap := s.Snapshot()
	require.Equal(t, 1, snap.ByState["Loaded"])
	require.Equal(t, 0, snap.PendingEvents)
}
