package service

import (
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// testKDFParams are the cheapest parameters Validate accepts, keeping tests fast.
var testKDFParams = keymanagerDomain.KDFParams{
	TimeCost:    1,
	MemoryCost:  8 * 1024,
	Parallelism: 1,
	KeyLength:   keymanagerDomain.KeySize,
}
