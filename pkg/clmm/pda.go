package clmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// PDA seed prefixes, matching the teacher's getPdaTickArrayAddress /
// GetPdaExBitmapAccount seed conventions.
var (
	seedAmmConfig          = []byte("amm_config")
	seedPool               = []byte("pool")
	seedPoolVault          = []byte("pool_vault")
	seedTickArray          = []byte("tick_array")
	seedBitmapExtension    = []byte("pool_tick_array_bitmap_extension")
	seedObservation        = []byte("observation")
	seedProtocolPosition   = []byte("position")
	seedPersonalPosition   = []byte("position")
)

// DeriveAmmConfigAddress derives an AmmConfig PDA from its fee-tier index.
func DeriveAmmConfigAddress(programID solana.PublicKey, index uint16) (solana.PublicKey, uint8, error) {
	indexBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(indexBytes, index)
	return solana.FindProgramAddress([][]byte{seedAmmConfig, indexBytes}, programID)
}

// DerivePoolAddress derives a pool's PDA from its config and token mints.
func DerivePoolAddress(programID, ammConfig, tokenMint0, tokenMint1 solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPool, ammConfig.Bytes(), tokenMint0.Bytes(), tokenMint1.Bytes()}, programID)
}

// DerivePoolVaultAddress derives one of a pool's two token vault PDAs.
func DerivePoolVaultAddress(programID, poolID, tokenMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPoolVault, poolID.Bytes(), tokenMint.Bytes()}, programID)
}

// DeriveObservationAddress derives a pool's price-observation account PDA.
func DeriveObservationAddress(programID, poolID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedObservation, poolID.Bytes()}, programID)
}

// DeriveTickArrayAddress derives the PDA for the tick array starting at
// startIndex, grounded on the teacher's getPdaTickArrayAddress.
func DeriveTickArrayAddress(programID, poolID solana.PublicKey, startIndex int32) (solana.PublicKey, uint8, error) {
	startIndexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(startIndexBytes, uint32(startIndex))
	return solana.FindProgramAddress([][]byte{seedTickArray, poolID.Bytes(), startIndexBytes}, programID)
}

// DeriveTickArrayBitmapExtensionAddress derives a pool's bitmap-extension
// PDA, grounded on the teacher's GetPdaExBitmapAccount.
func DeriveTickArrayBitmapExtensionAddress(programID, poolID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedBitmapExtension, poolID.Bytes()}, programID)
}

// DeriveProtocolPositionAddress derives the PDA for the protocol-owned
// position record spanning [tickLower, tickUpper).
func DeriveProtocolPositionAddress(programID, poolID solana.PublicKey, tickLower, tickUpper int32) (solana.PublicKey, uint8, error) {
	lowerBytes := make([]byte, 4)
	upperBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lowerBytes, uint32(tickLower))
	binary.BigEndian.PutUint32(upperBytes, uint32(tickUpper))
	return solana.FindProgramAddress([][]byte{seedProtocolPosition, poolID.Bytes(), lowerBytes, upperBytes}, programID)
}

// DerivePersonalPositionAddress derives the PDA for a personal position
// record keyed by its NFT mint.
func DerivePersonalPositionAddress(programID, nftMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seedPersonalPosition, nftMint.Bytes()}, programID)
}
