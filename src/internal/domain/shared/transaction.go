package shared

import "context"

// TransactionContext 事務上下文介面
//
// 行為約定：
// - ctx != nil：在調用者的事務中執行（事務傳播）
// - ctx == nil：auto-commit 模式，只允許用於獨立讀操作
//
// Repository 方法約束：
// - 寫操作（Save / Update / Append / 條件更新）與 ForUpdate 查詢：ctx 必須 non-nil
// - 一般讀操作：ctx 可為 nil
//
// 範例：
//
//	txManager.InTransaction(ctx, func(tx TransactionContext) error {
//	    customer, _ := customers.FindByIDForUpdate(tx, id)
//	    entry, _ := customer.Credit(amount, meta)
//	    if err := ledger.Append(tx, entry); err != nil {
//	        return err
//	    }
//	    return customers.Update(tx, customer)
//	})
//
// 這是標記介面，具體實作（GORM）在 Infrastructure Layer。
type TransactionContext interface {
	// 標記介面：僅用於傳遞上下文，不暴露方法
}

// TransactionManager 事務管理器介面
//
// fn 可能因交易衝突被重新執行（實作決定重試次數），
// 因此 fn 內不應有事務外的副作用；需要在提交後執行的動作放到 InTransaction 返回之後。
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(tx TransactionContext) error) error
}
