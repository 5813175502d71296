package constants

import "time"

const (
	AppName   = "cfdns"
	EnvPrefix = "CFDNS_"

	DefaultRecordTTL   = 600
	DefaultRecordCount = 2

	AliyunEndpoint     = "alidns.cn-shenzhen.aliyuncs.com"
	DNSPodEndpoint     = "dnspod.tencentcloudapi.com"
	DefaultDomainGrade = "D_FREE"

	// ProviderPageSize is the page size used when listing records.
	ProviderPageSize = 200
	// AliyunDomainPageSize is the largest page DescribeDomains accepts.
	AliyunDomainPageSize = 100
	DNSPodDomainPageSize = 100

	HostmonitURL        = "https://api.hostmonit.com/get_optimization_ip"
	DefaultHostmonitKey = "o1zrmHAF"

	DefaultRequestTimeout = 30 * time.Second
	LockFileName          = "cfdns.lock"
)

// Backoff for provider lookups that were throttled. Lookups are only
// retried when read retries are enabled.
const (
	DefaultReadRetries    = 0
	ReadRetryInitialDelay = 200 * time.Millisecond
	ReadRetryMaxDelay     = 2 * time.Second
	ReadRetryMultiplier   = 2.0
)
