package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/scholarium/internal/domain/account"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// accountRepository 账户仓储实现
// 余额修改使用条件UPDATE：
//
//	UPDATE accounts SET balance = balance - ? WHERE id = ? AND balance - ? >= 0
//
// 由数据库行锁串行化同一账户的并发修改，不会出现先查后写的竞态
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository 创建账户仓储
func NewAccountRepository(db *gorm.DB) account.Repository {
	return &accountRepository{db: db}
}

func (r *accountRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	model := &AccountModel{UserID: a.UserID, Balance: a.Balance}
	if err := r.getDB(ctx).Omit("Donations").Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return account.ErrAccountDuplicate
		}
		return dbError(err, "创建账户失败")
	}
	a.ID = model.ID
	a.CreatedAt = model.CreatedAt
	a.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*account.Account, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *accountRepository) FindByUserID(ctx context.Context, userID uint) (*account.Account, error) {
	return r.find(ctx, "user_id = ?", userID)
}

// find 只预加载已执行的捐赠
func (r *accountRepository) find(ctx context.Context, query string, arg interface{}) (*account.Account, error) {
	var model AccountModel
	err := r.getDB(ctx).
		Preload("Donations", "executed = ?", true).
		Where(query, arg).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, account.ErrAccountNotFound
		}
		return nil, dbError(err, "查询账户失败")
	}
	return toAccountEntity(&model), nil
}

// Spend 扣减余额
func (r *accountRepository) Spend(ctx context.Context, id uint, amount int) error {
	if amount < 0 {
		return account.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}

	db := r.getDB(ctx)
	result := db.Model(&AccountModel{}).
		Where("id = ?", id).
		Where("balance - ? >= 0", amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return dbError(result.Error, "扣减余额失败")
	}

	if result.RowsAffected == 0 {
		// 账户不存在或余额不足
		var count int64
		if err := db.Model(&AccountModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return dbError(err, "查询账户失败")
		}
		if count == 0 {
			return account.ErrAccountNotFound
		}
		return account.ErrInsufficientBalance
	}
	return nil
}

// Refill 增加余额
func (r *accountRepository) Refill(ctx context.Context, id uint, amount int) error {
	if amount < 0 {
		return account.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}

	result := r.getDB(ctx).Model(&AccountModel{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return dbError(result.Error, "增加余额失败")
	}
	if result.RowsAffected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) CreateDonation(ctx context.Context, d *account.Donation) error {
	model := toDonationModel(d)
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.New(apperrors.ErrCodeDuplicateEntry, "支付ID重复")
		}
		return dbError(err, "创建捐赠失败")
	}
	d.ID = model.ID
	return nil
}

func (r *accountRepository) FindDonationByPaymentID(ctx context.Context, paymentID string) (*account.Donation, error) {
	var model DonationModel
	if err := r.getDB(ctx).Where("payment_id = ?", paymentID).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, account.ErrDonationNotFound
		}
		return nil, dbError(err, "查询捐赠失败")
	}
	d := toDonationEntity(&model)
	return &d, nil
}

// MarkDonationExecuted 只在未执行时生效，重复回调返回ErrDonationExecuted
func (r *accountRepository) MarkDonationExecuted(ctx context.Context, id uint, payerReference string) error {
	db := r.getDB(ctx)
	result := db.Model(&DonationModel{}).
		Where("id = ? AND executed = ?", id, false).
		Updates(map[string]interface{}{
			"executed":        true,
			"payer_reference": payerReference,
		})
	if result.Error != nil {
		return dbError(result.Error, "更新捐赠失败")
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&DonationModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return dbError(err, "查询捐赠失败")
		}
		if count == 0 {
			return account.ErrDonationNotFound
		}
		return account.ErrDonationExecuted
	}
	return nil
}

// DeleteDonation 只删除未执行的捐赠
func (r *accountRepository) DeleteDonation(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Where("executed = ?", false).Delete(&DonationModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "删除捐赠失败")
	}
	if result.RowsAffected == 0 {
		return account.ErrDonationNotFound
	}
	return nil
}

func (r *accountRepository) ListLevels(ctx context.Context) ([]account.Level, error) {
	var models []DonationLevelModel
	if err := r.getDB(ctx).Order("amount ASC").Find(&models).Error; err != nil {
		return nil, dbError(err, "查询捐赠等级失败")
	}
	levels := make([]account.Level, len(models))
	for i, m := range models {
		levels[i] = account.Level{ID: m.ID, Amount: m.Amount, Title: m.Title}
	}
	return levels, nil
}

// SaveLevel 按金额插入或更新等级
func (r *accountRepository) SaveLevel(ctx context.Context, l *account.Level) error {
	db := r.getDB(ctx)

	var model DonationLevelModel
	err := db.Where("amount = ?", l.Amount).First(&model).Error
	switch {
	case err == nil:
		if err := db.Model(&model).Update("title", l.Title).Error; err != nil {
			return dbError(err, "更新捐赠等级失败")
		}
	case isNotFound(err):
		model = DonationLevelModel{Amount: l.Amount, Title: l.Title}
		if err := db.Create(&model).Error; err != nil {
			return dbError(err, "创建捐赠等级失败")
		}
	default:
		return dbError(err, "查询捐赠等级失败")
	}

	l.ID = model.ID
	return nil
}

func toAccountEntity(m *AccountModel) *account.Account {
	a := &account.Account{
		ID:        m.ID,
		UserID:    m.UserID,
		Balance:   m.Balance,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for i := range m.Donations {
		a.Donations = append(a.Donations, toDonationEntity(&m.Donations[i]))
	}
	return a
}

func toDonationModel(d *account.Donation) *DonationModel {
	return &DonationModel{
		ID:             d.ID,
		AccountID:      d.AccountID,
		Amount:         d.Amount,
		Date:           d.Date,
		Expiration:     d.Expiration,
		PaymentID:      d.PaymentID,
		PaymentMethod:  d.PaymentMethod,
		PayerReference: d.PayerReference,
		Executed:       d.Executed,
		CreatedAt:      time.Now(),
	}
}

func toDonationEntity(m *DonationModel) account.Donation {
	return account.Donation{
		ID:             m.ID,
		AccountID:      m.AccountID,
		Amount:         m.Amount,
		Date:           m.Date,
		Expiration:     m.Expiration,
		PaymentID:      m.PaymentID,
		PaymentMethod:  m.PaymentMethod,
		PayerReference: m.PayerReference,
		Executed:       m.Executed,
	}
}
