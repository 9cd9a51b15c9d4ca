package wire

import "encoding/json"

// Type is one of the enumerated message tags carried in an Envelope's
// "type" field.
type Type string

// The full gameplay message set. Tags flow client→server (CONNEXION,
// CHOIX_MODE, TIR, ...), server→client (CONNEXION_OK, REPONSE_TIR, ...),
// or both (NOUVELLE_PARTIE).
const (
	TypeConnexion           Type = "CONNEXION"
	TypeConnexionOK         Type = "CONNEXION_OK"
	TypeChoixMode           Type = "CHOIX_MODE"
	TypeAttenteAdversaire   Type = "ATTENTE_ADVERSAIRE"
	TypeAdversaireTrouve    Type = "ADVERSAIRE_TROUVE"
	TypePlacementNavires    Type = "PLACEMENT_NAVIRES"
	TypePlacementOK         Type = "PLACEMENT_OK"
	TypeDebutPartie         Type = "DEBUT_PARTIE"
	TypeVotreTour           Type = "VOTRE_TOUR"
	TypeTourAdversaire      Type = "TOUR_ADVERSAIRE"
	TypeTir                 Type = "TIR"
	TypeReponseTir          Type = "REPONSE_TIR"
	TypeReponseTirRecu      Type = "REPONSE_TIR_RECU"
	TypeFinPartie           Type = "FIN_PARTIE"
	TypeAbandon             Type = "ABANDON"
	TypeChat                Type = "CHAT"
	TypeChatGlobal          Type = "CHAT_GLOBAL"
	TypeReprendrePartie     Type = "REPRENDRE_PARTIE"
	TypeNouvellePartie      Type = "NOUVELLE_PARTIE"
	TypePartieReprise       Type = "PARTIE_REPRISE"
	TypeSauvegarderPartie   Type = "SAUVEGARDER_PARTIE"
	TypeDeconnexion         Type = "DECONNEXION"
	TypeErreur              Type = "ERREUR"
)

// Envelope is the top-level JSON object every frame payload carries:
// {"type": "...", "data": {...}}.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope marshals data and wraps it with the given type tag.
func NewEnvelope(t Type, data any) (Envelope, error) {
	if data == nil {
		return Envelope{Type: t, Data: json.RawMessage("{}")}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Data: raw}, nil
}

// Decode unmarshals the envelope's data field into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
