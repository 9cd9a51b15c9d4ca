package authserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/battleshipd/server/internal/authwire"
	"github.com/battleshipd/server/internal/config"
	"github.com/battleshipd/server/internal/model"
	"github.com/battleshipd/server/internal/store"
)

func savedSnapshotFixture() model.Snapshot {
	grid := make([][]int, 10)
	for y := range grid {
		grid[y] = make([]int, 10)
	}
	side := model.PlayerSnapshot{Nom: "dave", Grille: grid, GrilleSuivi: grid}
	return model.Snapshot{
		Joueur1:     side,
		Joueur2:     model.PlayerSnapshot{Nom: "SERVEUR_IA", Grille: grid, GrilleSuivi: grid},
		Etat:        string(model.Paused),
		TourJoueur1: true,
	}
}

func testAuthConfig() config.AuthServer {
	cfg := config.DefaultAuthServer()
	cfg.BindAddress = "127.0.0.1"
	cfg.Port = 0
	cfg.RendezvousHost = "127.0.0.1"
	cfg.RendezvousPort = 5555
	cfg.WorkerPoolSize = 4
	cfg.MinPasswordLength = 4
	return cfg
}

func startTestAuthServer(t *testing.T) (addr *net.UDPAddr, st *store.Store) {
	t.Helper()
	cfg := testAuthConfig()

	st, err := store.New(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	srv := NewServer(cfg, st)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(cfg.BindAddress), Port: 0})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go srv.Serve(ctx, conn)

	return conn.LocalAddr().(*net.UDPAddr), st
}

func roundTrip(t *testing.T, addr *net.UDPAddr, raw string) authwire.Response {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	fields := splitResponse(string(buf[:n]))
	resp := authwire.Response{Status: fields[0], Message: fields[1]}
	if resp.Status == authwire.StatusSuccess {
		resp.Host = fields[2]
		resp.SavedFlag = fields[4]
	}
	return resp
}

func splitResponse(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func TestRegisterThenLogin(t *testing.T) {
	addr, _ := startTestAuthServer(t)

	reg := roundTrip(t, addr, "AUTH_REGISTER|alice|hunter2")
	require.Equal(t, authwire.StatusSuccess, reg.Status)
	require.Equal(t, authwire.NewGame, reg.SavedFlag)

	login := roundTrip(t, addr, "AUTH_LOGIN|alice|hunter2")
	require.Equal(t, authwire.StatusSuccess, login.Status)
	require.Equal(t, "127.0.0.1", login.Host)
}

func TestLoginWithWrongPasswordFails(t *testing.T) {
	addr, _ := startTestAuthServer(t)

	roundTrip(t, addr, "AUTH_REGISTER|bob|correctpw")
	resp := roundTrip(t, addr, "AUTH_LOGIN|bob|wrongpw")
	require.Equal(t, authwire.StatusFailed, resp.Status)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	addr, _ := startTestAuthServer(t)

	first := roundTrip(t, addr, "AUTH_REGISTER|carol|hunter22")
	require.Equal(t, authwire.StatusSuccess, first.Status)

	second := roundTrip(t, addr, "AUTH_REGISTER|carol|differentpw")
	require.Equal(t, authwire.StatusFailed, second.Status)
}

func TestMalformedDatagramRepliesFailed(t *testing.T) {
	addr, _ := startTestAuthServer(t)
	resp := roundTrip(t, addr, "not-a-valid-request")
	require.Equal(t, authwire.StatusFailed, resp.Status)
}

func TestLoginReportsSavedGameFlag(t *testing.T) {
	addr, st := startTestAuthServer(t)

	roundTrip(t, addr, "AUTH_REGISTER|dave|hunter22")
	require.NoError(t, st.SaveGame("dave", savedSnapshotFixture()))

	resp := roundTrip(t, addr, "AUTH_LOGIN|dave|hunter22")
	require.Equal(t, authwire.StatusSuccess, resp.Status)
	require.Equal(t, authwire.SavedGameExists, resp.SavedFlag)
}
