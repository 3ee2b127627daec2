package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type seedCustomer struct {
	Name    string
	Phone   string
	Address string
	Status  constants.OrderStatus
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加商品
	products := []models.Product{
		{
			Title:       "无线蓝牙耳机",
			Description: "高品质音质，长续航，舒适佩戴",
			Images:      models.StringArray{"https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=800"},
			Spec:        "标准版",
			Price:       models.MustMoney("99.00"),
			Stock:       intPtr(120),
			IsActive:    true,
			SortOrder:   100,
		},
		{
			Title:       "智能手表",
			Description: "健康监测，运动追踪，消息提醒",
			Images:      models.StringArray{"https://images.unsplash.com/photo-1579586337278-3befd40fd17a?w=800"},
			Spec:        "42mm",
			Price:       models.MustMoney("199.00"),
			Stock:       intPtr(30),
			IsActive:    true,
			SortOrder:   90,
		},
		{
			Title:       "便携充电宝",
			Description: "大容量，快速充电，多设备兼容",
			Images:      models.StringArray{"https://images.unsplash.com/photo-1609091839311-d5365f9ff1c5?w=800"},
			Spec:        "20000mAh",
			Price:       models.MustMoney("49.90"),
			Stock:       intPtr(3),
			IsActive:    true,
			SortOrder:   80,
		},
		{
			Title:       "多功能背包",
			Description: "大容量，防水防盗，USB充电接口",
			Images:      models.StringArray{"https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800"},
			Price:       models.MustMoney("79.90"),
			IsActive:    true,
			SortOrder:   70,
		},
		{
			Title:       "限量纪念徽章",
			Description: "已售罄演示商品",
			Price:       models.MustMoney("15.00"),
			Stock:       intPtr(0),
			IsActive:    true,
			SortOrder:   60,
		},
	}

	seeded := make([]models.Product, 0, len(products))
	for _, product := range products {
		var existing models.Product
		err := models.DB.Where("title = ?", product.Title).First(&existing).Error
		switch {
		case err == nil:
			stdLog.Printf("Product already exists: %s", product.Title)
			seeded = append(seeded, existing)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Title, err)
				continue
			}
			stdLog.Printf("Created product: %s", product.Title)
			seeded = append(seeded, product)
		default:
			stdLog.Printf("Failed to query product %s: %v", product.Title, err)
		}
	}
	if len(seeded) < 2 {
		stdLog.Fatalf("Not enough products to seed orders")
	}

	// 每个状态各一张示例订单
	customers := []seedCustomer{
		{Name: "张三", Phone: "13800000001", Address: "北京市朝阳区建国路 1 号", Status: constants.OrderStatusPending},
		{Name: "李四", Phone: "13800000002", Address: "上海市浦东新区世纪大道 2 号", Status: constants.OrderStatusPaid},
		{Name: "王五", Phone: "13800000003", Address: "广州市天河区体育西路 3 号", Status: constants.OrderStatusShipped},
		{Name: "赵六", Phone: "13800000004", Address: "深圳市南山区科技园 4 号", Status: constants.OrderStatusCompleted},
		{Name: "钱七", Phone: "13800000005", Address: "杭州市西湖区文三路 5 号", Status: constants.OrderStatusCancelled},
	}
	for i, customer := range customers {
		product := seeded[i%2]
		if err := seedOrder(customer, product, i+1); err != nil {
			stdLog.Printf("Failed to seed order for %s: %v", customer.Name, err)
			continue
		}
		stdLog.Printf("Created %s order for %s", customer.Status, customer.Name)
	}

	stdLog.Printf("Seed completed")
}

func seedOrder(customer seedCustomer, product models.Product, quantity int) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Order{}).Where("user_phone = ?", customer.Phone).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		user := models.User{
			Token:    strings.ReplaceAll(uuid.NewString(), "-", ""),
			Nickname: customer.Name,
			Phone:    customer.Phone,
			UserType: constants.UserTypeRegistered,
			IsActive: true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		now := time.Now()
		total := product.Price.MulQuantity(quantity)
		order := models.Order{
			OrderNo:         fmt.Sprintf("%sSEED%012d", constants.OrderNoPrefix, user.ID),
			UserID:          user.ID,
			UserName:        customer.Name,
			UserPhone:       customer.Phone,
			ShippingAddress: customer.Address,
			TotalAmount:     total,
			ProductCount:    quantity,
			Status:          customer.Status,
		}
		path := statusPath(customer.Status)
		for _, status := range path[1:] {
			stamp := now
			switch status {
			case constants.OrderStatusPaid:
				order.PaidAt = &stamp
			case constants.OrderStatusShipped:
				order.ShippedAt = &stamp
			case constants.OrderStatusCompleted:
				order.CompletedAt = &stamp
			case constants.OrderStatusCancelled:
				order.CanceledAt = &stamp
			}
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		item := models.OrderItem{
			OrderID:    order.ID,
			ProductID:  product.ID,
			Title:      product.Title,
			Image:      product.Images.First(),
			SpecName:   product.Spec,
			UnitPrice:  product.Price,
			Quantity:   quantity,
			TotalPrice: total,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		var from constants.OrderStatus
		for _, status := range path {
			log := models.OrderStatusLog{
				OrderID:    order.ID,
				FromStatus: from,
				ToStatus:   status,
				Actor:      constants.ActorSystem,
			}
			if err := tx.Create(&log).Error; err != nil {
				return err
			}
			from = status
		}
		return nil
	})
}

// statusPath 从 pending 到目标状态的流转路径
func statusPath(target constants.OrderStatus) []constants.OrderStatus {
	switch target {
	case constants.OrderStatusPaid:
		return []constants.OrderStatus{constants.OrderStatusPending, constants.OrderStatusPaid}
	case constants.OrderStatusShipped:
		return []constants.OrderStatus{constants.OrderStatusPending, constants.OrderStatusPaid, constants.OrderStatusShipped}
	case constants.OrderStatusCompleted:
		return []constants.OrderStatus{constants.OrderStatusPending, constants.OrderStatusPaid, constants.OrderStatusShipped, constants.OrderStatusCompleted}
	case constants.OrderStatusCancelled:
		return []constants.OrderStatus{constants.OrderStatusPending, constants.OrderStatusCancelled}
	default:
		return []constants.OrderStatus{constants.OrderStatusPending}
	}
}

func intPtr(v int) *int {
	return &v
}
