package session

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/battleshipd/server/internal/wire"
)

func TestClientReplyDoesNotChangePhase(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(server, wire.NewBytePool(64))
	c.SetPhase(PhaseModeSelect)

	go func() {
		env, _ := wire.NewEnvelope(wire.TypeConnexionOK, nil)
		c.Reply(env)
	}()

	_, err := wire.Receive(client, 0)
	require.NoError(t, err)
	require.Equal(t, PhaseModeSelect, c.Phase())
}

func TestClientSendAdvancesPhaseOnAdversaireTrouve(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(server, wire.NewBytePool(64))
	c.SetPhase(PhaseAttendingOpponent)

	go func() {
		env, _ := wire.NewEnvelope(wire.TypeAdversaireTrouve, map[string]string{"adversaire": "bob"})
		c.Send(env)
	}()

	_, err := wire.Receive(client, 0)
	require.NoError(t, err)
	require.Equal(t, PhasePlacement, c.Phase())
}

func TestClientSendAdvancesPhaseOnDebutPartie(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(server, wire.NewBytePool(64))
	c.SetPhase(PhasePlacement)

	go func() {
		env, _ := wire.NewEnvelope(wire.TypeDebutPartie, nil)
		c.Send(env)
	}()

	_, err := wire.Receive(client, 0)
	require.NoError(t, err)
	require.Equal(t, PhasePlaying, c.Phase())
}

func TestClientSendAdvancesPhaseOnFinPartie(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(server, wire.NewBytePool(64))
	c.SetPhase(PhasePlaying)

	go func() {
		env, _ := wire.NewEnvelope(wire.TypeFinPartie, map[string]string{"status": "VICTOIRE"})
		c.Send(env)
	}()

	_, err := wire.Receive(client, 0)
	require.NoError(t, err)
	require.Equal(t, PhaseClosed, c.Phase())
}

func TestClientSendLeavesUnrelatedTypesAlone(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(server, wire.NewBytePool(64))
	c.SetPhase(PhasePlaying)

	go func() {
		env, _ := wire.NewEnvelope(wire.TypeReponseTirRecu, map[string]string{"resultat": "TOUCHE"})
		c.Send(env)
	}()

	_, err := wire.Receive(client, 0)
	require.NoError(t, err)
	require.Equal(t, PhasePlaying, c.Phase())
}
