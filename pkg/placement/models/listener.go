// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

// UnitListener is notified after an executor enters or leaves a slot.
type UnitListener interface {
	UnitAssigned(slot *Slot, executor *Executor)
	UnitRemoved(slot *Slot, executor *Executor)
}

// SlotListener is notified after a slot enters or leaves a node.
type SlotListener interface {
	SlotAssigned(node *Node, slot *Slot)
	SlotRemoved(node *Node, slot *Slot)
}
