package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Inline JSON ABI fragments, the style reputation_feedback.go uses for every
// contract call instead of abigen-generated bindings.

const trustScoreABIJSON = `[
	{
		"inputs": [{"internalType": "uint256", "name": "agentId", "type": "uint256"}],
		"name": "getScore",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "agentId", "type": "uint256"}],
		"name": "getDetailedReport",
		"outputs": [
			{"internalType": "uint256", "name": "score", "type": "uint256"},
			{"internalType": "uint256", "name": "totalFeedback", "type": "uint256"},
			{"internalType": "uint256", "name": "positiveFeedback", "type": "uint256"},
			{"internalType": "uint256", "name": "lastUpdated", "type": "uint256"},
			{"internalType": "bool", "name": "exists", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256[]", "name": "ids", "type": "uint256[]"},
			{"internalType": "uint256[]", "name": "scores", "type": "uint256[]"},
			{"internalType": "uint256[]", "name": "totals", "type": "uint256[]"},
			{"internalType": "uint256[]", "name": "positives", "type": "uint256[]"}
		],
		"name": "batchUpdateScores",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const feedbackEventABIJSON = `[
	{
		"anonymous": false,
		"name": "FeedbackPosted",
		"type": "event",
		"inputs": [
			{"internalType": "uint256", "name": "agentId", "type": "uint256", "indexed": true},
			{"internalType": "address", "name": "clientAddress", "type": "address", "indexed": true},
			{"internalType": "uint64", "name": "feedbackIndex", "type": "uint64", "indexed": false},
			{"internalType": "int128", "name": "value", "type": "int128", "indexed": false},
			{"internalType": "uint8", "name": "valueDecimals", "type": "uint8", "indexed": false},
			{"internalType": "string", "name": "indexedTag1", "type": "string", "indexed": true},
			{"internalType": "string", "name": "tag1", "type": "string", "indexed": false},
			{"internalType": "string", "name": "tag2", "type": "string", "indexed": false},
			{"internalType": "string", "name": "endpoint", "type": "string", "indexed": false},
			{"internalType": "string", "name": "feedbackURI", "type": "string", "indexed": false},
			{"internalType": "bytes32", "name": "feedbackHash", "type": "bytes32", "indexed": false}
		]
	},
	{
		"anonymous": false,
		"name": "NewFeedback",
		"type": "event",
		"inputs": [
			{"internalType": "uint256", "name": "agentId", "type": "uint256", "indexed": true},
			{"internalType": "address", "name": "clientAddress", "type": "address", "indexed": true},
			{"internalType": "uint64", "name": "feedbackIndex", "type": "uint64", "indexed": false},
			{"internalType": "int128", "name": "value", "type": "int128", "indexed": false},
			{"internalType": "uint8", "name": "valueDecimals", "type": "uint8", "indexed": false},
			{"internalType": "string", "name": "indexedTag1", "type": "string", "indexed": true},
			{"internalType": "string", "name": "tag1", "type": "string", "indexed": false},
			{"internalType": "string", "name": "tag2", "type": "string", "indexed": false},
			{"internalType": "string", "name": "endpoint", "type": "string", "indexed": false},
			{"internalType": "string", "name": "feedbackURI", "type": "string", "indexed": false},
			{"internalType": "bytes32", "name": "feedbackHash", "type": "bytes32", "indexed": false}
		]
	}
]`

func parsedTrustScoreABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(trustScoreABIJSON))
}

func parsedFeedbackEventABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(feedbackEventABIJSON))
}
