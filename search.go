package sxgeo

// linearScanLen - bisection stops once a window is this small and a linear scan finishes it
const linearScanLen = 8

// resolveID maps an IPv4 address to its record identifier; 0 means no covering range.
func (client *Client) resolveID(ipn uint32) (uint32, error) {
	h := client.header
	octet := ipn >> 24
	if octet == 0 || octet == 10 || octet == 127 || octet >= uint32(h.FirstByteIndexLen) {
		return 0, nil
	}
	low := ipn & 0x00FFFFFF

	blocksMin := client.fbIndex[octet-1]
	blocksMax := client.fbIndex[octet]
	if blocksMax < blocksMin || blocksMax > h.RangeCount {
		return 0, nil
	}

	span := uint32(h.RangeSpan)
	from, to := blocksMin, blocksMax
	if blocksMax-blocksMin > span {
		part := client.searchIdx(ipn, blocksMin/span, blocksMax/span-1)
		from = part * span
		if part > uint32(h.MainIndexLen) {
			to = h.RangeCount
		} else {
			to = (part + 1) * span
		}
		if from < blocksMin {
			from = blocksMin
		}
		if to > blocksMax {
			to = blocksMax
		}
		if from >= to {
			// every index entry is below the address: the last block of the bucket covers it
			from = to - 1
		}
	}
	return client.searchDB(low, from, to)
}

// searchIdx finds the first main index entry in [lo, hi] that is not below ipn.
// Returns hi+1 when every entry is below ipn.
func (client *Client) searchIdx(ipn, lo, hi uint32) uint32 {
	idx := client.mIndex
	if hi >= uint32(len(idx)) {
		hi = uint32(len(idx)) - 1
	}
	if lo > hi {
		return lo
	}
	for hi-lo > linearScanLen {
		offset := (lo + hi) >> 1
		if ipn > idx[offset] {
			lo = offset
		} else {
			hi = offset
		}
	}
	for ipn > idx[lo] {
		if lo >= hi {
			lo++
			break
		}
		lo++
	}
	return lo
}

// searchDB finds the block covering low among range blocks [from, to). Blocks are
// half-open ranges: the answer is the block before the first one whose start exceeds low.
func (client *Client) searchDB(low, from, to uint32) (uint32, error) {
	count := to - from
	if count == 0 {
		return 0, nil
	}
	db, err := client.storage.rangeWindow(from, count)
	if err != nil {
		return 0, err
	}
	blockLen := client.header.BlockLen

	// bisection keeps row(lo) <= low < row(hi), the scan then stops on the first row past low
	lo, hi := uint32(0), count
	for hi-lo > linearScanLen {
		offset := (lo + hi) >> 1
		if low >= rangeStart(db, offset*blockLen) {
			lo = offset
		} else {
			hi = offset
		}
	}
	for low >= rangeStart(db, lo*blockLen) {
		lo++
		if lo >= hi {
			break
		}
	}
	pos := lo

	if pos == 0 {
		// address sits below the first block of the window, the preceding block covers it
		if from == 0 {
			return 0, nil
		}
		prev, err := client.storage.rangeWindow(from-1, 1)
		if err != nil {
			return 0, err
		}
		return client.decodeID(prev[ipLen:]), nil
	}
	return client.decodeID(db[pos*blockLen-uint32(client.header.IDLen) : pos*blockLen]), nil
}

func rangeStart(db []byte, offset uint32) uint32 {
	return uint32(db[offset])<<16 | uint32(db[offset+1])<<8 | uint32(db[offset+2])
}

// decodeID reads a big-endian identifier of the header's width.
func (client *Client) decodeID(b []byte) uint32 {
	if client.header.IDLen == 1 {
		return uint32(b[0])
	}
	var id uint32
	for _, c := range b[:client.header.IDLen] {
		id = id<<8 | uint32(c)
	}
	return id
}
