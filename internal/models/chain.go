package models

// ChainResponse is the body served by GET /chain and read back from peers
type ChainResponse struct {
	Chain  []Block `json:"chain"`
	Length int     `json:"length"`
}
