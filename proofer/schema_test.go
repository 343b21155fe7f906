package proofer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		params  string
		wantErr bool
	}{
		{
			name:   "getProof valid",
			method: "eth_getProof",
			params: `["0x1234567890123456789012345678901234567890",["0x0000000000000000000000000000000000000000000000000000000000000001"],"latest"]`,
		},
		{
			name:    "getProof bad address",
			method:  "eth_getProof",
			params:  `["0x1234",[],"latest"]`,
			wantErr: true,
		},
		{
			name:    "getProof missing block",
			method:  "eth_getProof",
			params:  `["0x1234567890123456789012345678901234567890",[]]`,
			wantErr: true,
		},
		{
			name:   "getBalance numeric block",
			method: "eth_getBalance",
			params: `["0x1234567890123456789012345678901234567890","0x12ab"]`,
		},
		{
			name:    "getBalance too many params",
			method:  "eth_getBalance",
			params:  `["0x1234567890123456789012345678901234567890","latest","extra"]`,
			wantErr: true,
		},
		{
			name:   "transaction by hash",
			method: "eth_getTransactionByHash",
			params: `["0x00000000000000000000000000000000000000000000000000000000000000aa"]`,
		},
		{
			name:    "transaction short hash",
			method:  "eth_getTransactionByHash",
			params:  `["0xaa"]`,
			wantErr: true,
		},
		{
			name:   "block by number optional flag",
			method: "eth_getBlockByNumber",
			params: `["latest"]`,
		},
		{
			name:   "block by number with flag",
			method: "eth_getBlockByNumber",
			params: `["0x10",true]`,
		},
		{
			name:   "logs filter object",
			method: "eth_getLogs",
			params: `[{"fromBlock":"0x1","toBlock":"0x2"}]`,
		},
		{
			name:    "logs filter not an object",
			method:  "eth_getLogs",
			params:  `["0x1"]`,
			wantErr: true,
		},
		{
			name:   "sync proof period",
			method: "eth_proof_sync",
			params: `[1392]`,
		},
		{
			name:    "not an array",
			method:  "eth_getLogs",
			params:  `{"fromBlock":"0x1"}`,
			wantErr: true,
		},
		{
			name:    "unknown method",
			method:  "eth_unknown",
			params:  `[]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(tt.method, []byte(tt.params))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateParamsCached(t *testing.T) {
	params := []byte(`["0x00000000000000000000000000000000000000000000000000000000000000aa"]`)
	require.NoError(t, ValidateParams("eth_getTransactionByHash", params))
	// Second validation hits the FNV ring and must agree.
	require.NoError(t, ValidateParams("eth_getTransactionByHash", params))
}
