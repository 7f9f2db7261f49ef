package repository

import (
	"context"

	"github.com/yeremiapane/restaurant-reservation/models"
	"gorm.io/gorm"
)

type TableRepository struct {
	DB *gorm.DB
}

func NewTableRepository(db *gorm.DB) *TableRepository {
	return &TableRepository{DB: db}
}

func (r *TableRepository) Create(ctx context.Context, table *models.Table) error {
	return wrap("create table", r.DB.WithContext(ctx).Create(table).Error)
}

func (r *TableRepository) GetByID(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := r.DB.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, wrap("get table", err)
	}
	return &table, nil
}

func (r *TableRepository) List(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&tables).Error; err != nil {
		return nil, wrap("list tables", err)
	}
	return tables, nil
}

// ListAvailable returns AVAILABLE tables seating at least minCapacity, smallest first.
func (r *TableRepository) ListAvailable(ctx context.Context, minCapacity int) ([]models.Table, error) {
	var tables []models.Table
	err := r.DB.WithContext(ctx).
		Where("status = ? AND capacity >= ?", models.TableAvailable, minCapacity).
		Order("capacity ASC, id ASC").
		Find(&tables).Error
	if err != nil {
		return nil, wrap("list available tables", err)
	}
	return tables, nil
}

func (r *TableRepository) UpdateStatus(ctx context.Context, id uint, status models.TableStatus) error {
	res := r.DB.WithContext(ctx).Model(&models.Table{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return wrap("update table status", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update table status", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *TableRepository) UpdateCapacity(ctx context.Context, id uint, capacity int) error {
	res := r.DB.WithContext(ctx).Model(&models.Table{}).Where("id = ?", id).Update("capacity", capacity)
	if res.Error != nil {
		return wrap("update table capacity", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update table capacity", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *TableRepository) Delete(ctx context.Context, id uint) error {
	return wrap("delete table", r.DB.WithContext(ctx).Delete(&models.Table{}, id).Error)
}

// CountByStatus feeds the dashboard counters pushed with every table event.
func (r *TableRepository) CountByStatus(ctx context.Context) (map[models.TableStatus]int64, error) {
	var rows []struct {
		Status models.TableStatus
		Count  int64
	}
	err := r.DB.WithContext(ctx).Model(&models.Table{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("count tables", err)
	}
	counts := map[models.TableStatus]int64{
		models.TableAvailable: 0,
		models.TableReserved:  0,
		models.TableOccupied:  0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
