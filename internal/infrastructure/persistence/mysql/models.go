package mysql

import (
	"time"

	"gorm.io/gorm"
)

// GORM模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. 领域实体不依赖GORM，Repository负责两者之间的转换
// 3. 外部键（external_key）都有唯一索引，它们是同步时的连接键
// 4. 多对多关系使用显式的关联表模型，写入时忽略重复

// UserModel 用户
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string         `gorm:"size:255;not null;comment:密码（bcrypt加密）"`
	Nickname  string         `gorm:"size:50;not null;comment:昵称"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间（软删除）"`
}

func (UserModel) TableName() string { return "users" }

// AccountModel 账户，余额由CHECK约束兜底不为负
type AccountModel struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    uint            `gorm:"uniqueIndex;not null;comment:用户ID"`
	Balance   int             `gorm:"not null;default:0;check:chk_accounts_balance,balance >= 0;comment:余额"`
	Donations []DonationModel `gorm:"foreignKey:AccountID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccountModel) TableName() string { return "accounts" }

// DonationModel 捐赠
type DonationModel struct {
	ID             uint      `gorm:"primaryKey"`
	AccountID      uint      `gorm:"index;not null"`
	Amount         int       `gorm:"not null"`
	Date           time.Time `gorm:"not null"`
	Expiration     time.Time `gorm:"index;not null"`
	PaymentID      string    `gorm:"uniqueIndex;size:64;not null;comment:支付网关关联ID"`
	PaymentMethod  string    `gorm:"size:32"`
	PayerReference string    `gorm:"size:128"`
	Executed       bool      `gorm:"index;not null;default:false"`
	CreatedAt      time.Time
}

func (DonationModel) TableName() string { return "donations" }

// DonationLevelModel 捐赠等级
type DonationLevelModel struct {
	ID     uint   `gorm:"primaryKey"`
	Amount int    `gorm:"uniqueIndex;not null"`
	Title  string `gorm:"size:100;not null"`
}

func (DonationLevelModel) TableName() string { return "donation_levels" }

// CollectionModel 书目集合
type CollectionModel struct {
	ID          uint   `gorm:"primaryKey"`
	ExternalKey string `gorm:"uniqueIndex;size:32;not null"`
	Title       string `gorm:"size:255;not null"`
	ParentID    *uint  `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CollectionModel) TableName() string { return "catalog_collections" }

// EntryModel 书目条目
type EntryModel struct {
	ID            uint   `gorm:"primaryKey"`
	ExternalKey   string `gorm:"uniqueIndex;size:32;not null"`
	Title         string `gorm:"size:500;not null"`
	PublishedDate *time.Time
	StockAmount   *int
	BasePrice     *int
	DigitalPrice  *int
	Printable     bool   `gorm:"not null;default:false"`
	Fingerprint   string `gorm:"size:16;comment:远程记录哈希（十六进制）"`
	ProductID     uint   `gorm:"uniqueIndex;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (EntryModel) TableName() string { return "catalog_entries" }

// AuthorModel 作者
type AuthorModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:255;not null"`
}

func (AuthorModel) TableName() string { return "authors" }

// EntryAuthorModel 条目-作者关联，Position保留作者顺序
type EntryAuthorModel struct {
	EntryID  uint `gorm:"primaryKey"`
	AuthorID uint `gorm:"primaryKey;index"`
	Position int  `gorm:"not null;default:0"`
}

func (EntryAuthorModel) TableName() string { return "catalog_entry_authors" }

// EntryCollectionModel 条目-集合关联
type EntryCollectionModel struct {
	EntryID      uint `gorm:"primaryKey"`
	CollectionID uint `gorm:"primaryKey;index"`
}

func (EntryCollectionModel) TableName() string { return "catalog_entry_collections" }

// AttachmentModel 附件
type AttachmentModel struct {
	ID          uint   `gorm:"primaryKey"`
	ExternalKey string `gorm:"uniqueIndex;size:32;not null"`
	Format      string `gorm:"size:8;not null"`
	MediaType   string `gorm:"size:16;not null"`
	EntryID     uint   `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AttachmentModel) TableName() string { return "attachments" }

// ProductModel 商品拥有者（书、活动、课程、小册子）
type ProductModel struct {
	ID    uint   `gorm:"primaryKey"`
	Kind  string `gorm:"index;size:16;not null"`
	Title string `gorm:"size:500"`
	Date  *time.Time
}

func (ProductModel) TableName() string { return "products" }

// ItemTypeModel 商品类型
type ItemTypeModel struct {
	ID                           uint   `gorm:"primaryKey"`
	Slug                         string `gorm:"uniqueIndex;size:32;not null"`
	Title                        string `gorm:"size:100"`
	ShippingRequired             bool   `gorm:"not null;default:false"`
	AllowPriceRequest            bool   `gorm:"not null;default:false"`
	AllowRestockRequest          bool   `gorm:"not null;default:false"`
	DefaultPrice                 *int
	DefaultStock                 *int
	PurchasableAtLevel           *int
	AccessibleAtLevel            *int
	BuyOnce                      bool `gorm:"not null;default:false"`
	ExpiresWithProduct           bool `gorm:"not null;default:false"`
	AllowUnauthenticatedPurchase bool `gorm:"not null;default:false"`
	NotifyStaffOnPurchase        bool `gorm:"not null;default:false"`
	Lendable                     bool `gorm:"not null;default:false;comment:出借类型，库存为副本数"`
}

func (ItemTypeModel) TableName() string { return "item_types" }

// ItemModel 库存商品，库存由CHECK约束兜底不为负
type ItemModel struct {
	ID           uint          `gorm:"primaryKey"`
	TypeID       uint          `gorm:"index;not null"`
	Type         ItemTypeModel `gorm:"foreignKey:TypeID"`
	ProductID    uint          `gorm:"index;not null"`
	Product      ProductModel  `gorm:"foreignKey:ProductID"`
	AttachmentID *uint         `gorm:"uniqueIndex"`
	Price        *int          `gorm:"comment:覆盖价格，为空时使用类型默认价格"`
	Stock        *int          `gorm:"check:chk_items_stock,stock IS NULL OR stock >= 0;comment:库存，为空表示不限"`
	SyncedStock  *int          `gorm:"comment:上次同步的远程库存"`
	ExpiresOn    *time.Time
	Discounts    []ItemDiscountModel `gorm:"foreignKey:ItemID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ItemModel) TableName() string { return "inventory_items" }

// ItemDiscountModel 商品折扣档位
type ItemDiscountModel struct {
	ID          uint `gorm:"primaryKey"`
	ItemID      uint `gorm:"index;not null"`
	LevelAmount int  `gorm:"not null"`
	Percent     int  `gorm:"not null"`
}

func (ItemDiscountModel) TableName() string { return "item_discounts" }

// ItemRequestModel 定价/补货申请
type ItemRequestModel struct {
	ItemID    uint `gorm:"primaryKey"`
	AccountID uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

func (ItemRequestModel) TableName() string { return "item_requests" }

// PurchaseModel 购买记录
type PurchaseModel struct {
	ID        uint `gorm:"primaryKey"`
	AccountID uint `gorm:"index:idx_purchase_account_item;not null"`
	ItemID    uint `gorm:"index:idx_purchase_account_item;index;not null"`
	Quantity  int  `gorm:"not null;default:1"`
	Executed  bool `gorm:"index;not null;default:false"`
	Date      *time.Time
	Free      bool `gorm:"not null;default:false"`
	Total     int  `gorm:"not null;default:0;comment:执行时扣除的金额"`
	CreatedAt time.Time
}

func (PurchaseModel) TableName() string { return "purchases" }

// LendingModel 出借，与购买一对一
type LendingModel struct {
	ID         uint `gorm:"primaryKey"`
	PurchaseID uint `gorm:"uniqueIndex;not null"`
	AccountID  uint `gorm:"index;not null"`
	ItemID     uint `gorm:"index:idx_lending_item_returned;not null"`
	ShippedAt  *time.Time
	ReturnedAt *time.Time `gorm:"index:idx_lending_item_returned;comment:为空表示未归还"`
	ChargedAt  *time.Time
	CreatedAt  time.Time
}

func (LendingModel) TableName() string { return "lendings" }
