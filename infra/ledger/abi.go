package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const contractABIJSON = `[
  {"type":"event","name":"ItemCreated","anonymous":false,"inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"creator","type":"address","indexed":true},
    {"name":"name","type":"string","indexed":false},
    {"name":"quantity","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"ItemTransferred","anonymous":false,"inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"quantity","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"function","name":"tokens","stateMutability":"view",
    "inputs":[{"name":"","type":"uint256"}],
    "outputs":[
      {"name":"id","type":"uint256"},
      {"name":"name","type":"string"},
      {"name":"description","type":"string"},
      {"name":"creator","type":"address"},
      {"name":"creationDate","type":"uint256"}]},
  {"type":"function","name":"getBalance","stateMutability":"view",
    "inputs":[{"name":"tokenId","type":"uint256"},{"name":"account","type":"address"}],
    "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getAttributeNames","stateMutability":"view",
    "inputs":[{"name":"tokenId","type":"uint256"}],
    "outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"getAttribute","stateMutability":"view",
    "inputs":[{"name":"tokenId","type":"uint256"},{"name":"name","type":"string"}],
    "outputs":[
      {"name":"name","type":"string"},
      {"name":"value","type":"string"},
      {"name":"timestamp","type":"uint256"}]},
  {"type":"function","name":"getPendingTransfers","stateMutability":"view",
    "inputs":[{"name":"account","type":"address"}],
    "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"transfers","stateMutability":"view",
    "inputs":[{"name":"","type":"uint256"}],
    "outputs":[
      {"name":"id","type":"uint256"},
      {"name":"tokenId","type":"uint256"},
      {"name":"from","type":"address"},
      {"name":"to","type":"address"},
      {"name":"quantity","type":"uint256"},
      {"name":"status","type":"uint8"}]},
  {"type":"function","name":"createItem","stateMutability":"nonpayable",
    "inputs":[
      {"name":"name","type":"string"},
      {"name":"description","type":"string"},
      {"name":"quantity","type":"uint256"},
      {"name":"attributeNames","type":"string[]"},
      {"name":"attributeValues","type":"string[]"}],
    "outputs":[]},
  {"type":"function","name":"initiateTransfer","stateMutability":"nonpayable",
    "inputs":[
      {"name":"tokenId","type":"uint256"},
      {"name":"to","type":"address"},
      {"name":"quantity","type":"uint256"}],
    "outputs":[]},
  {"type":"function","name":"acceptTransfer","stateMutability":"nonpayable",
    "inputs":[{"name":"transferId","type":"uint256"}],
    "outputs":[]},
  {"type":"function","name":"rejectTransfer","stateMutability":"nonpayable",
    "inputs":[{"name":"transferId","type":"uint256"}],
    "outputs":[]},
  {"type":"function","name":"processItem","stateMutability":"nonpayable",
    "inputs":[
      {"name":"inputTokenIds","type":"uint256[]"},
      {"name":"inputQuantities","type":"uint256[]"},
      {"name":"name","type":"string"},
      {"name":"description","type":"string"},
      {"name":"quantity","type":"uint256"}],
    "outputs":[]}
]`

var contractABI = mustParseABI(contractABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Errorf("fatal error parsing contract ABI: %w", err))
	}
	return parsed
}
