package vocab

// Curated data tables for rule-text analysis. Package-level so the
// singleton build shares them without copying; treated as immutable
// after init.

// defaultConcepts maps canonical SQL/database concepts to their trigger
// terms in both Chinese and English. A concept is present in a rule when
// any trigger term occurs in its text.
var defaultConcepts = map[string][]string{
	"index":        {"index", "indexes", "indexing", "indexed", "索引"},
	"query":        {"query", "queries", "querying", "查询"},
	"table":        {"table", "tables", "表", "数据表", "全表"},
	"column":       {"column", "columns", "field", "fields", "字段", "列"},
	"performance":  {"performance", "perf", "性能", "效率"},
	"optimization": {"optimize", "optimization", "optimizing", "优化"},
	"transaction":  {"transaction", "transactions", "事务"},
	"lock":         {"lock", "locks", "locking", "deadlock", "锁", "死锁"},
	"join":         {"join", "joins", "连接", "关联"},
	"subquery":     {"subquery", "subqueries", "子查询"},
	"partition":    {"partition", "partitions", "partitioning", "分区", "分表"},
	"backup":       {"backup", "backups", "备份"},
	"recovery":     {"recovery", "restore", "恢复", "还原"},
	"cache":        {"cache", "caching", "缓存"},
	"connection":   {"connection", "connections", "pool", "连接池"},
	"injection":    {"injection", "注入"},
	"privilege":    {"privilege", "privileges", "permission", "permissions", "grant", "权限", "授权"},
	"encryption":   {"encrypt", "encryption", "加密", "脱敏"},
	"constraint":   {"constraint", "constraints", "foreign key", "primary key", "约束", "主键", "外键"},
	"schema":       {"schema", "ddl", "结构", "表结构"},
	"migration":    {"migration", "migrations", "迁移"},
	"replication":  {"replication", "replica", "主从", "复制", "同步"},
	"scan":         {"scan", "scans", "full scan", "扫描", "全表扫描"},
	"pagination":   {"pagination", "paging", "分页"},
	"batch":        {"batch", "bulk", "批量"},
	"slowlog":      {"slow query", "slow log", "慢查询", "慢日志"},
	"statistics":   {"statistics", "analyze", "统计信息"},
	"normalize":    {"normalization", "normal form", "范式"},
	"charset":      {"charset", "character set", "collation", "字符集", "排序规则"},
	"datatype":     {"data type", "datatype", "varchar", "bigint", "数据类型", "类型"},
}

// defaultTechnicalTerms is the SQL syntax vocabulary. Single tokens are
// matched against the token set; phrases by containment.
var defaultTechnicalTerms = []string{
	"select", "insert", "update", "delete", "create", "alter", "drop",
	"truncate", "where", "having", "distinct", "union", "exists", "like",
	"between", "limit", "offset", "explain", "commit", "rollback",
	"group by", "order by", "inner join", "left join", "right join",
	"outer join", "cross join", "primary key", "foreign key", "not null",
	"auto_increment", "varchar", "bigint", "datetime", "timestamp",
	"innodb", "myisam",
}

// defaultActions are the instruction verbs rules are built from.
var defaultActions = []string{
	"avoid", "use", "check", "optimize", "recommend", "suggest", "ensure",
	"prevent", "limit", "reduce", "prefer", "forbid", "disable", "enable",
	"review", "monitor", "validate",
	"检查", "优化", "避免", "使用", "禁止", "建议", "确保", "防止",
	"限制", "减少", "推荐", "启用", "关闭", "审核", "监控", "校验", "规避",
}

// defaultObjects are the things rules act on.
var defaultObjects = []string{
	"table", "index", "column", "field", "query", "database", "statement",
	"view", "procedure", "trigger", "transaction", "connection", "schema",
	"row", "record", "cursor", "server",
	"表", "索引", "字段", "查询", "数据库", "语句", "视图", "存储过程",
	"触发器", "事务", "连接", "记录", "游标", "服务器", "实例",
}

// defaultDomainTriggers classifies rules into coarse domains. Order of
// map iteration does not matter; extraction sorts its output.
var defaultDomainTriggers = map[string][]string{
	"performance": {
		"performance", "slow", "optimize", "latency", "throughput",
		"index", "cache", "scan", "explain",
		"性能", "优化", "慢", "效率", "索引", "缓存", "扫描", "耗时",
	},
	"security": {
		"security", "injection", "privilege", "permission", "encrypt",
		"password", "audit", "sensitive", "attack",
		"安全", "注入", "权限", "加密", "密码", "审计", "敏感", "攻击", "脱敏",
	},
	"reliability": {
		"reliability", "backup", "recovery", "transaction", "consistency",
		"failover", "replication", "availability", "durability",
		"可靠", "备份", "恢复", "事务", "一致性", "容灾", "主从", "可用性", "持久",
	},
	"design": {
		"design", "naming", "schema", "convention", "standard", "normal",
		"structure", "comment", "readability",
		"设计", "命名", "规范", "标准", "范式", "结构", "注释", "可读",
	},
}

// Sentiment word lists. Rules are imperatives, so "sentiment" here means
// prescriptive polarity: encouraging versus prohibiting.
var defaultPositiveWords = []string{
	"good", "best", "recommend", "prefer", "improve", "should", "better",
	"efficient", "safe", "correct", "proper",
	"推荐", "建议", "最佳", "优先", "提升", "提高", "高效", "安全", "正确", "合理",
}

var defaultNegativeWords = []string{
	"avoid", "never", "bad", "wrong", "dangerous", "forbidden", "deprecated",
	"slow", "risk", "error", "fail", "leak",
	"禁止", "避免", "错误", "危险", "不要", "严禁", "淘汰", "缓慢", "风险", "失败", "泄露", "不得",
}

// Formality indicator lists for the linguistic feature bundle.
var defaultFormalWords = []string{
	"must", "shall", "required", "mandatory", "standard", "policy",
	"specification", "compliance", "prohibited",
	"必须", "应当", "规范", "标准", "要求", "强制", "禁止", "严禁", "应遵循",
}

var defaultInformalWords = []string{
	"maybe", "try", "just", "stuff", "thing", "probably", "bit", "pretty",
	"试试", "大概", "可能", "差不多", "一般来说", "建议尽量",
}

// defaultStopWords joins English function words with Chinese particles
// and filler verbs that carry no topical signal in rule text.
var defaultStopWords = []string{
	// English
	"the", "a", "an", "and", "or", "but", "if", "then", "else", "when",
	"at", "by", "for", "with", "about", "against", "to", "from", "in",
	"out", "on", "off", "of", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "do", "does", "did", "will", "would",
	"can", "could", "may", "might", "this", "that", "these", "those",
	"it", "its", "as", "not", "no", "all", "any", "each", "more", "most",
	"other", "some", "such", "than", "too", "very", "you", "your", "we",
	// Chinese particles and fillers (matched as bigram tokens or chars)
	"的", "了", "是", "在", "和", "与", "或", "及", "对", "中", "时",
	"需要", "进行", "一个", "可以", "应该", "我们", "这个", "那个",
	"如果", "因为", "所以", "但是", "并且", "通过", "对于", "相关",
}

// defaultAcronyms whitelists short uppercase technical tokens so the
// acronym-usage ratio ignores ordinary short words.
var defaultAcronyms = []string{
	"sql", "ddl", "dml", "dql", "api", "orm", "acid", "cpu", "io", "qps",
	"tps", "oom", "gc", "db", "json", "xml", "csv", "uuid", "lru", "ttl",
}
