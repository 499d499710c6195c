// Package symindex persists the exported entities of checked units to
// a SQLite database, the symbol index editor tooling queries instead
// of reparsing a whole project.
package symindex

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vesper-lang/vesper/internal/entity"
	"github.com/vesper-lang/vesper/internal/parser"
)

// Symbol is one exported entity of one unit
type Symbol struct {
	ID   uint   `gorm:"primaryKey"`
	Unit string `gorm:"index:idx_unit_name,unique;not null"`
	Name string `gorm:"index:idx_unit_name,unique;index;not null"`
	Kind string `gorm:"not null"`
	Type string
}

// UnitRecord tracks the content checksum each unit was indexed at, so
// an unchanged unit can be skipped on the next emit.
type UnitRecord struct {
	Unit     string `gorm:"primaryKey"`
	Checksum uint64
}

// Index is an open symbol index database
type Index struct {
	db *gorm.DB
}

// Open opens or creates the index at path and migrates its schema
func Open(path string) (*Index, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening symbol index %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Symbol{}, &UnitRecord{}); err != nil {
		return nil, fmt.Errorf("migrating symbol index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database connection
func (x *Index) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FromUnit builds the symbol rows for one checked unit's exports
func FromUnit(pool *entity.Pool, unit *parser.UnitParser) []Symbol {
	exports := unit.Exports()
	syms := make([]Symbol, 0, exports.Len())
	for _, name := range exports.Names() {
		id, _ := exports.Get(name)
		e := pool.Get(id)
		sym := Symbol{
			Unit: unit.File().Name,
			Name: name,
			Kind: e.Kind().String(),
		}
		if e.IsValue() {
			sym.Type = pool.ValueType(id).String()
		}
		syms = append(syms, sym)
	}
	return syms
}

// ReplaceUnit swaps the indexed symbols of one unit for the given
// rows and records the checksum they were computed from. The whole
// swap is one transaction so readers never see a half-indexed unit.
func (x *Index) ReplaceUnit(unit string, checksum uint64, syms []Symbol) error {
	return x.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("unit = ?", unit).Delete(&Symbol{}).Error; err != nil {
			return err
		}
		if len(syms) > 0 {
			if err := tx.Create(&syms).Error; err != nil {
				return err
			}
		}
		rec := UnitRecord{Unit: unit, Checksum: checksum}
		return tx.Save(&rec).Error
	})
}

// Checksum returns the checksum unit was last indexed at, or false
// when the unit has never been indexed.
func (x *Index) Checksum(unit string) (uint64, bool) {
	var rec UnitRecord
	err := x.db.First(&rec, "unit = ?", unit).Error
	if err != nil {
		return 0, false
	}
	return rec.Checksum, true
}

// Lookup returns every indexed symbol with the given name, across
// all units.
func (x *Index) Lookup(name string) ([]Symbol, error) {
	var syms []Symbol
	err := x.db.Where("name = ?", name).Order("unit").Find(&syms).Error
	return syms, err
}

// UnitSymbols returns the indexed symbols of one unit in name order
func (x *Index) UnitSymbols(unit string) ([]Symbol, error) {
	var syms []Symbol
	err := x.db.Where("unit = ?", unit).Order("name").Find(&syms).Error
	return syms, err
}
