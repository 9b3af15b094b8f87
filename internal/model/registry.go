package model

// AllModels 需要迁移的模型, 新增表时在这里添加
func AllModels() []interface{} {
	return []interface{}{
		&DispatchRecord{},
		&OutboxMessage{},
	}
}
