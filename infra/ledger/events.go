package ledger

import (
	"fmt"
	"math/big"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	itemCreatedID     = contractABI.Events[string(domain.EventItemCreated)].ID
	itemTransferredID = contractABI.Events[string(domain.EventItemTransferred)].ID
)

func eventID(kind domain.EventKind) (common.Hash, error) {
	switch kind {
	case domain.EventItemCreated:
		return itemCreatedID, nil
	case domain.EventItemTransferred:
		return itemTransferredID, nil
	default:
		return common.Hash{}, fmt.Errorf("unknown event kind %q", kind)
	}
}

// filterTopics translates an EventFilter to log topics. Indexed arguments are
// tokenId and creator for ItemCreated, tokenId, from and to for
// ItemTransferred. An empty position matches any value.
func filterTopics(filter domain.EventFilter) ([][]common.Hash, error) {
	id, err := eventID(filter.Kind)
	if err != nil {
		return nil, err
	}

	var items []common.Hash
	for _, itemID := range filter.ItemIDs {
		items = append(items, common.BigToHash(new(big.Int).SetUint64(itemID)))
	}

	topics := [][]common.Hash{{id}, items}
	if filter.Kind == domain.EventItemCreated {
		topics = append(topics, addressTopic(filter.Creator))
	} else {
		topics = append(topics, addressTopic(filter.From), addressTopic(filter.To))
	}

	// Trailing wildcards are dropped, some nodes reject them.
	for len(topics) > 1 && len(topics[len(topics)-1]) == 0 {
		topics = topics[:len(topics)-1]
	}
	return topics, nil
}

func addressTopic(addr *common.Address) []common.Hash {
	if addr == nil {
		return nil
	}
	return []common.Hash{common.BytesToHash(addr.Bytes())}
}

// decodeLog converts a contract log to a RawEvent. Logs of other events are
// reported with ok=false.
func decodeLog(l types.Log) (event domain.RawEvent, ok bool, err error) {
	if len(l.Topics) == 0 {
		return domain.RawEvent{}, false, nil
	}

	event = domain.RawEvent{
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
		BlockNumber: l.BlockNumber,
	}

	switch l.Topics[0] {
	case itemCreatedID:
		if len(l.Topics) != 3 {
			return domain.RawEvent{}, false, fmt.Errorf("ItemCreated log %s has %d topics", l.TxHash.Hex(), len(l.Topics))
		}
		var data struct {
			Name      string
			Quantity  *big.Int
			Timestamp *big.Int
		}
		if err := contractABI.UnpackIntoInterface(&data, string(domain.EventItemCreated), l.Data); err != nil {
			return domain.RawEvent{}, false, fmt.Errorf("decode ItemCreated log %s: %w", l.TxHash.Hex(), err)
		}
		event.Kind = domain.EventItemCreated
		event.Creator = common.BytesToAddress(l.Topics[2].Bytes())
		event.Name = data.Name
		return finishEvent(event, l.Topics[1], data.Quantity, data.Timestamp)

	case itemTransferredID:
		if len(l.Topics) != 4 {
			return domain.RawEvent{}, false, fmt.Errorf("ItemTransferred log %s has %d topics", l.TxHash.Hex(), len(l.Topics))
		}
		var data struct {
			Quantity  *big.Int
			Timestamp *big.Int
		}
		if err := contractABI.UnpackIntoInterface(&data, string(domain.EventItemTransferred), l.Data); err != nil {
			return domain.RawEvent{}, false, fmt.Errorf("decode ItemTransferred log %s: %w", l.TxHash.Hex(), err)
		}
		event.Kind = domain.EventItemTransferred
		event.From = common.BytesToAddress(l.Topics[2].Bytes())
		event.To = common.BytesToAddress(l.Topics[3].Bytes())
		return finishEvent(event, l.Topics[1], data.Quantity, data.Timestamp)
	}

	return domain.RawEvent{}, false, nil
}

func finishEvent(event domain.RawEvent, idTopic common.Hash, quantity, timestamp *big.Int) (domain.RawEvent, bool, error) {
	id, err := toUint64(new(big.Int).SetBytes(idTopic.Bytes()))
	if err != nil {
		return domain.RawEvent{}, false, fmt.Errorf("token id: %w", err)
	}
	qty, err := domain.QuantityFromBig(quantity)
	if err != nil {
		return domain.RawEvent{}, false, err
	}
	event.ItemID = id
	event.Quantity = qty
	event.Timestamp = unixTime(timestamp)
	return event, true, nil
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("value %s does not fit in 64 bits", v.String())
	}
	return v.Uint64(), nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
